package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/app"
	"github.com/homewiz/lease-concierge/backend/internal/config"
	"github.com/homewiz/lease-concierge/backend/internal/model/chat"
	"github.com/homewiz/lease-concierge/backend/internal/model/onboarding"
	chatservice "github.com/homewiz/lease-concierge/backend/internal/service/chat"
)

const quitCommand = "/quit"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] no .env loaded, using process environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	endpoint := flag.String("url", cfg.Gateway.Endpoint, "leasing endpoint that receives bookings and messages")
	timeout := flag.Duration("timeout", 30*time.Second, "per-turn request timeout")
	summary := flag.Bool("summary", false, "print a table of collected answers once onboarding completes")
	flag.Parse()

	cfg.Gateway.Endpoint = *endpoint

	svc, err := app.NewChatService(context.Background(), cfg, zap.NewNop(), app.Options{})
	if err != nil {
		log.Fatalf("failed to initialise chat service: %v", err)
	}

	if err := run(context.Background(), os.Stdin, os.Stdout, svc, *timeout, *summary); err != nil {
		log.Fatalf("session ended with error: %v", err)
	}
}

// run drives one conversation from in until EOF or /quit.
func run(ctx context.Context, in io.Reader, out io.Writer, svc *chatservice.Service, timeout time.Duration, summary bool) error {
	session, err := svc.CreateSession(ctx)
	if err != nil {
		return err
	}
	printAssistant(out, session.Messages)

	summarised := false
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == quitCommand {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, timeout)
		turn, err := svc.Submit(turnCtx, session.ID, line)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		printAssistant(out, turn.Messages)

		if summary && !summarised && turn.Session.Stage.Complete() {
			fmt.Fprintln(out)
			fmt.Fprint(out, formatAnswers(turn.Session.Answers))
			summarised = true
		}
	}
}

func printAssistant(out io.Writer, messages []chat.Message) {
	for _, m := range messages {
		if m.Role == chat.RoleAssistant {
			fmt.Fprintf(out, "concierge: %s\n", m.Text)
		}
	}
}

// formatAnswers renders the collected answers as a markdown table in
// onboarding order.
func formatAnswers(answers map[string]string) string {
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Answer")
	for _, key := range onboarding.RequiredKeys {
		_ = table.Append(key, answers[key])
	}
	_ = table.Render()
	return buf.String()
}
