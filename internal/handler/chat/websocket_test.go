package chat

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type frame struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	Data      map[string]any `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestWebSocketConversation(t *testing.T) {
	chatSvc := newChatService(t)
	session, err := chatSvc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if f := readFrame(t, conn); f.Type != "result" || f.Data["type"] != "connected" || f.SessionID != session.ID {
		t.Fatalf("unexpected first frame %+v", f)
	}

	if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "Ada"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	echo := readFrame(t, conn)
	msg, _ := echo.Data["message"].(map[string]any)
	if echo.Data["type"] != "message" || msg["role"] != "user" || msg["text"] != "Ada" {
		t.Fatalf("unexpected echo frame %+v", echo)
	}
	question := readFrame(t, conn)
	msg, _ = question.Data["message"].(map[string]any)
	if msg["text"] != "What's your email address?" {
		t.Fatalf("unexpected question frame %+v", question)
	}

	if err := conn.WriteJSON(map[string]any{"type": "audio"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, conn); f.Type != "error" {
		t.Fatalf("expected error frame, got %+v", f)
	}
}

func TestWebSocketFreeFormBusyFrames(t *testing.T) {
	chatSvc := newChatService(t)
	session, _ := chatSvc.CreateSession(context.Background())
	for _, answer := range []string{"Ada", "ada@example.com", "5551234567", "soon", "3"} {
		if _, err := chatSvc.Submit(context.Background(), session.ID, answer); err != nil {
			t.Fatalf("Submit err: %v", err)
		}
	}

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readFrame(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "parking?"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := []string{"message", "busy", "message", "busy"}
	frames := make([]frame, 0, len(want))
	for range want {
		frames = append(frames, readFrame(t, conn))
	}
	for i, f := range frames {
		if f.Data["type"] != want[i] {
			t.Fatalf("frame %d: expected %s, got %+v", i, want[i], f)
		}
	}
	if frames[1].Data["busy"] != true || frames[3].Data["busy"] != false {
		t.Fatalf("unexpected busy frames %+v %+v", frames[1], frames[3])
	}
	reply, _ := frames[2].Data["message"].(map[string]any)
	if reply["text"] != "We have parking." {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	r := chi.NewRouter()
	NewWebSocketHandler(newChatService(t), nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}
