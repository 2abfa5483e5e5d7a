// Package dispatch decides what a single visitor utterance does to a
// conversation. Every function here is pure: network effects are returned as
// a Request for the caller to perform.
package dispatch

import (
	"strings"

	"github.com/homewiz/lease-concierge/backend/internal/model/chat"
	"github.com/homewiz/lease-concierge/backend/internal/model/onboarding"
)

// RequestKind distinguishes the two outbound call shapes.
type RequestKind string

const (
	RequestBooking  RequestKind = "booking"
	RequestFreeForm RequestKind = "free_form"
)

// Request is the single outbound call a turn asks for.
type Request struct {
	Kind    RequestKind
	Booking onboarding.Booking
	Message string
}

// Outcome is the result of performing a Request. Err is nil on success.
type Outcome struct {
	Reply string
	Err   error
}

// State is everything one session owns.
type State struct {
	Messages []chat.Message
	Stage    onboarding.Stage
	Answers  onboarding.Answers
	Busy     bool
}

func (s State) clone() State {
	return State{
		Messages: append([]chat.Message(nil), s.Messages...),
		Stage:    s.Stage,
		Answers:  s.Answers.Clone(),
		Busy:     s.Busy,
	}
}

func (s *State) say(text string) {
	s.Messages = append(s.Messages, chat.AssistantMessage(text))
}

// Dispatcher walks a Catalog and routes post-onboarding input.
type Dispatcher struct {
	catalog onboarding.Catalog
	rand    onboarding.RandSource
}

// New creates a dispatcher over catalog drawing unit ids from rnd.
func New(catalog onboarding.Catalog, rnd onboarding.RandSource) *Dispatcher {
	return &Dispatcher{catalog: catalog, rand: rnd}
}

// Catalog returns the steps the dispatcher walks.
func (d *Dispatcher) Catalog() onboarding.Catalog {
	return d.catalog
}

// Start returns the state of a fresh session: the greeting and the first
// question.
func (d *Dispatcher) Start() State {
	state := State{
		Stage:   onboarding.Onboarding(0),
		Answers: onboarding.Answers{},
	}
	state.say(Greeting)
	if first, ok := d.catalog.At(0); ok {
		state.say(first.Question)
	} else {
		state.Stage = onboarding.AwaitingBookingConfirmation()
	}
	return state
}

// Handle applies one utterance to state. Blank input and input received
// while busy leave the state untouched. The returned state never aliases the
// input state.
func (d *Dispatcher) Handle(state State, input string) (State, *Request) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || state.Busy {
		return state, nil
	}

	next := state.clone()
	next.Messages = append(next.Messages, chat.UserMessage(trimmed))

	if next.Stage.Kind == onboarding.StageOnboarding {
		d.answer(&next, trimmed)
		return next, nil
	}

	if strings.ToLower(trimmed) == onboarding.BookingKeyword {
		booking, err := onboarding.NewBooking(next.Answers, onboarding.NewUnitID(d.rand))
		if err != nil {
			next.say(BookingFailed)
			return next, nil
		}
		next.Busy = true
		return next, &Request{Kind: RequestBooking, Booking: booking}
	}

	next.Stage = onboarding.Free()
	next.Busy = true
	return next, &Request{Kind: RequestFreeForm, Message: input}
}

func (d *Dispatcher) answer(state *State, value string) {
	step, ok := d.catalog.At(state.Stage.Step)
	if !ok {
		state.Stage = onboarding.AwaitingBookingConfirmation()
		return
	}
	if !step.Accepts(value) {
		state.say(step.Error)
		return
	}

	state.Answers[step.Key] = value
	if nextStep, ok := d.catalog.At(state.Stage.Step + 1); ok {
		state.Stage = onboarding.Onboarding(state.Stage.Step + 1)
		state.say(nextStep.Question)
		return
	}

	state.Stage = onboarding.AwaitingBookingConfirmation()
	state.say(UnitGenerated)
	state.say(BookingPrompt)
}

// Resolve folds the outcome of req into state and clears the busy flag.
func (d *Dispatcher) Resolve(state State, req *Request, outcome Outcome) State {
	if req == nil {
		return state
	}

	next := state.clone()
	next.Busy = false

	switch req.Kind {
	case RequestBooking:
		next.Stage = onboarding.Free()
		if outcome.Err != nil {
			next.say(BookingFailed)
		} else {
			next.say(BookingSucceeded)
		}
	case RequestFreeForm:
		switch {
		case outcome.Err != nil:
			next.say(GenericFailure)
		case outcome.Reply == "":
			next.say(NoResponse)
		default:
			next.say(outcome.Reply)
		}
	}
	return next
}
