package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	modelchat "github.com/homewiz/lease-concierge/backend/internal/model/chat"
	"github.com/homewiz/lease-concierge/backend/internal/model/onboarding"
	chat "github.com/homewiz/lease-concierge/backend/internal/service/chat"
	"github.com/homewiz/lease-concierge/backend/internal/service/dispatch"
	"github.com/homewiz/lease-concierge/backend/internal/service/gateway"
)

type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

type fakeBooker struct {
	mu       sync.Mutex
	err      error
	bookings []onboarding.Booking
}

func (f *fakeBooker) Book(_ context.Context, b onboarding.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, b)
	return f.err
}

type fakeAssistant struct {
	reply   string
	err     error
	release chan struct{}
	seen    []string
}

func (f *fakeAssistant) Reply(_ context.Context, _ []modelchat.Message, message string) (string, error) {
	if f.release != nil {
		<-f.release
	}
	f.seen = append(f.seen, message)
	return f.reply, f.err
}

func newService(booker *fakeBooker, assistant *fakeAssistant) *chat.Service {
	d := dispatch.New(onboarding.DefaultCatalog(), fixedRand(0))
	return chat.NewService(d, booker, assistant, nil)
}

func onboard(t *testing.T, svc *chat.Service, id string) {
	t.Helper()
	for _, answer := range []string{"Ada", "ada@example.com", "5551234567", "June 1", "2"} {
		if _, err := svc.Submit(context.Background(), id, answer); err != nil {
			t.Fatalf("Submit(%q) err: %v", answer, err)
		}
	}
}

func TestServiceCreateSession(t *testing.T) {
	svc := newService(&fakeBooker{}, &fakeAssistant{})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected session id")
	}
	if len(session.Messages) != 2 || session.Messages[0].Text != dispatch.Greeting {
		t.Fatalf("unexpected opening transcript %+v", session.Messages)
	}
	if session.Stage != onboarding.Onboarding(0) {
		t.Fatalf("unexpected stage %s", session.Stage)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
}

func TestServiceGetSessionErrors(t *testing.T) {
	svc := newService(&fakeBooker{}, &fakeAssistant{})
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.LoadTranscript(ctx, ""); !errors.Is(err, chat.ErrSessionRequired) {
		t.Fatalf("expected ErrSessionRequired, got %v", err)
	}
	if _, err := svc.Submit(ctx, "missing", "hi"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceSubmitRejectsBlankInput(t *testing.T) {
	svc := newService(&fakeBooker{}, &fakeAssistant{})
	session, _ := svc.CreateSession(context.Background())

	if _, err := svc.Submit(context.Background(), session.ID, "   "); !errors.Is(err, chat.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	transcript, _ := svc.LoadTranscript(context.Background(), session.ID)
	if len(transcript) != 2 {
		t.Fatalf("blank input must not change transcript, got %d messages", len(transcript))
	}
}

func TestServiceBookingFlow(t *testing.T) {
	booker := &fakeBooker{}
	svc := newService(booker, &fakeAssistant{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)

	onboard(t, svc, session.ID)

	got, _ := svc.GetSession(ctx, session.ID)
	if got.Stage != onboarding.AwaitingBookingConfirmation() {
		t.Fatalf("expected awaiting confirmation, got %s", got.Stage)
	}

	turn, err := svc.Submit(ctx, session.ID, "BOOK")
	if err != nil {
		t.Fatalf("Submit book err: %v", err)
	}
	if len(booker.bookings) != 1 {
		t.Fatalf("expected one booking, got %d", len(booker.bookings))
	}
	b := booker.bookings[0]
	if b.Name != "Ada" || b.BedsWanted != 2 || b.UnitID != onboarding.MinUnitID {
		t.Fatalf("unexpected booking %+v", b)
	}
	if len(turn.Messages) != 2 || turn.Messages[1].Text != dispatch.BookingSucceeded {
		t.Fatalf("unexpected turn messages %+v", turn.Messages)
	}
	if turn.Session.Busy || turn.Session.Stage != onboarding.Free() {
		t.Fatalf("unexpected session after booking %+v", turn.Session)
	}
}

func TestServiceBookingFailure(t *testing.T) {
	booker := &fakeBooker{err: &gateway.NetworkError{Op: "book", StatusCode: 500}}
	svc := newService(booker, &fakeAssistant{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)
	onboard(t, svc, session.ID)

	turn, err := svc.Submit(ctx, session.ID, "book")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	last := turn.Messages[len(turn.Messages)-1]
	if last.Text != dispatch.BookingFailed {
		t.Fatalf("expected failure text, got %q", last.Text)
	}
	if turn.Session.Busy {
		t.Fatal("busy flag must clear after failure")
	}
}

func TestServiceFreeFormReply(t *testing.T) {
	assistant := &fakeAssistant{reply: "Two-bed units are available."}
	svc := newService(&fakeBooker{}, assistant)
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)
	onboard(t, svc, session.ID)

	turn, err := svc.Submit(ctx, session.ID, "  any pools?  ")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if len(assistant.seen) != 1 || assistant.seen[0] != "  any pools?  " {
		t.Fatalf("assistant should receive raw input, got %q", assistant.seen)
	}
	if turn.Messages[0].Text != "any pools?" || turn.Messages[1].Text != "Two-bed units are available." {
		t.Fatalf("unexpected turn messages %+v", turn.Messages)
	}
}

func TestServiceBusyRejectsSecondInput(t *testing.T) {
	assistant := &fakeAssistant{reply: "ok", release: make(chan struct{})}
	svc := newService(&fakeBooker{}, assistant)
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)
	onboard(t, svc, session.ID)

	pending, err := svc.Begin(ctx, session.ID, "hello")
	if err != nil {
		t.Fatalf("Begin err: %v", err)
	}
	if !pending.Waiting() || !pending.Session().Busy {
		t.Fatal("expected pending free-form request with busy session")
	}

	if _, err := svc.Begin(ctx, session.ID, "again"); !errors.Is(err, chat.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(assistant.release)
	turn, err := pending.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if turn.Session.Busy {
		t.Fatal("busy flag must clear after completion")
	}
}

func TestServiceSweep(t *testing.T) {
	svc := newService(&fakeBooker{}, &fakeAssistant{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx)

	if n := svc.Sweep(time.Hour); n != 0 {
		t.Fatalf("fresh session must survive, swept %d", n)
	}

	time.Sleep(5 * time.Millisecond)
	if n := svc.Sweep(time.Millisecond); n != 1 {
		t.Fatalf("expected one idle session swept, got %d", n)
	}
	if _, err := svc.GetSession(ctx, session.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected swept session to be gone, got %v", err)
	}
}
