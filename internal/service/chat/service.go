package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/model/chat"
	"github.com/homewiz/lease-concierge/backend/internal/model/onboarding"
	"github.com/homewiz/lease-concierge/backend/internal/service/dispatch"
	"github.com/homewiz/lease-concierge/backend/internal/service/gateway"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrBusy            = errors.New("a request is already in flight for this session")
	ErrEmptyInput      = errors.New("message text is required")
)

// Booker submits a completed booking.
type Booker interface {
	Book(ctx context.Context, booking onboarding.Booking) error
}

// Assistant answers free-form messages.
type Assistant interface {
	Reply(ctx context.Context, history []chat.Message, message string) (string, error)
}

type entry struct {
	mu         sync.Mutex
	id         string
	createdAt  time.Time
	lastActive time.Time
	state      dispatch.State
}

func (e *entry) snapshot() chat.Session {
	return chat.Session{
		ID:        e.id,
		CreatedAt: e.createdAt,
		Stage:     e.state.Stage,
		Busy:      e.state.Busy,
		Messages:  append([]chat.Message(nil), e.state.Messages...),
		Answers:   e.state.Answers.Clone(),
	}
}

// Service owns every live conversation in memory.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	dispatcher *dispatch.Dispatcher
	booker     Booker
	assistant  Assistant
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the dispatcher to its outbound dependencies.
func NewService(dispatcher *dispatch.Dispatcher, booker Booker, assistant Assistant, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions:   make(map[string]*entry),
		dispatcher: dispatcher,
		booker:     booker,
		assistant:  assistant,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession starts a conversation seeded with the greeting and the
// first onboarding question.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	now := s.now()
	e := &entry{
		id:         uuid.NewString(),
		createdAt:  now,
		lastActive: now,
		state:      s.dispatcher.Start(),
	}

	s.mu.Lock()
	s.sessions[e.id] = e
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session", e.id))
	return e.snapshot(), nil
}

// GetSession retrieves a snapshot of a session.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// LoadTranscript returns the messages of a session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// Pending is a turn whose local effects are applied but whose outbound
// request, if any, has not been performed yet. The session stays busy until
// Complete returns.
type Pending struct {
	svc     *Service
	entry   *entry
	req     *dispatch.Request
	history []chat.Message
	added   []chat.Message
	session chat.Session
}

// Session is the snapshot taken right after the input was applied.
func (p *Pending) Session() chat.Session {
	return p.session
}

// Messages are the entries the input appended before any network call.
func (p *Pending) Messages() []chat.Message {
	return p.added
}

// Waiting reports whether Complete will perform a network call.
func (p *Pending) Waiting() bool {
	return p.req != nil
}

// Turn is the full effect of one submitted input.
type Turn struct {
	Messages []chat.Message `json:"messages"`
	Session  chat.Session   `json:"session"`
}

// Begin applies input to the session and returns the pending outbound call.
func (s *Service) Begin(_ context.Context, sessionID, input string) (*Pending, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Busy {
		return nil, ErrBusy
	}
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	before := len(e.state.Messages)
	next, req := s.dispatcher.Handle(e.state, input)
	e.state = next
	e.lastActive = s.now()

	if req != nil {
		s.logger.Debug("outbound request queued",
			zap.String("session", e.id),
			zap.String("kind", string(req.Kind)),
			zap.String("stage", next.Stage.String()))
	}

	return &Pending{
		svc:     s,
		entry:   e,
		req:     req,
		history: append([]chat.Message(nil), next.Messages...),
		added:   append([]chat.Message(nil), next.Messages[before:]...),
		session: e.snapshot(),
	}, nil
}

// Complete performs the outbound call and folds its outcome into the
// session. It is a no-op for turns that need no call.
func (p *Pending) Complete(ctx context.Context) (*Turn, error) {
	if p.req == nil {
		return &Turn{Messages: p.added, Session: p.session}, nil
	}

	outcome := p.svc.perform(ctx, p.entry.id, p.req, p.history)

	e := p.entry
	e.mu.Lock()
	defer e.mu.Unlock()

	before := len(e.state.Messages)
	e.state = p.svc.dispatcher.Resolve(e.state, p.req, outcome)
	e.lastActive = p.svc.now()

	resolved := append([]chat.Message(nil), e.state.Messages[before:]...)
	return &Turn{
		Messages: append(append([]chat.Message(nil), p.added...), resolved...),
		Session:  e.snapshot(),
	}, nil
}

// Submit runs Begin and Complete back to back.
func (s *Service) Submit(ctx context.Context, sessionID, input string) (*Turn, error) {
	pending, err := s.Begin(ctx, sessionID, input)
	if err != nil {
		return nil, err
	}
	return pending.Complete(ctx)
}

func (s *Service) perform(ctx context.Context, sessionID string, req *dispatch.Request, history []chat.Message) dispatch.Outcome {
	var outcome dispatch.Outcome
	switch req.Kind {
	case dispatch.RequestBooking:
		outcome.Err = s.booker.Book(ctx, req.Booking)
	case dispatch.RequestFreeForm:
		outcome.Reply, outcome.Err = s.assistant.Reply(ctx, history, req.Message)
	}

	if outcome.Err != nil {
		fields := []zap.Field{
			zap.String("session", sessionID),
			zap.String("kind", string(req.Kind)),
			zap.Error(outcome.Err),
		}
		var netErr *gateway.NetworkError
		if errors.As(outcome.Err, &netErr) && netErr.StatusCode != 0 {
			fields = append(fields, zap.Int("status", netErr.StatusCode))
		}
		s.logger.Warn("outbound request failed", fields...)
	} else if req.Kind == dispatch.RequestBooking {
		s.logger.Info("booking submitted",
			zap.String("session", sessionID),
			zap.Int("unit_id", req.Booking.UnitID))
	}
	return outcome
}

// Sweep drops idle sessions that have no request in flight and returns how
// many were removed.
func (s *Service) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := !e.state.Busy && e.lastActive.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ttl); n > 0 {
				s.logger.Info("idle sessions swept", zap.Int("removed", n))
			}
		}
	}
}
