package onboarding

import "testing"

type maxRand struct{}

func (maxRand) IntN(n int) int { return n - 1 }

type minRand struct{}

func (minRand) IntN(int) int { return 0 }

func TestNewUnitIDRange(t *testing.T) {
	if got := NewUnitID(minRand{}); got != MinUnitID {
		t.Fatalf("min draw: got %d want %d", got, MinUnitID)
	}
	if got := NewUnitID(maxRand{}); got != MaxUnitID {
		t.Fatalf("max draw: got %d want %d", got, MaxUnitID)
	}
}

func TestNewBooking(t *testing.T) {
	answers := Answers{
		KeyName:   "Alice",
		KeyEmail:  "alice@example.com",
		KeyPhone:  "5551234567",
		KeyMoveIn: "2024-01-01",
		KeyBeds:   "02",
	}
	booking, err := NewBooking(answers, 42)
	if err != nil {
		t.Fatalf("NewBooking err: %v", err)
	}
	if booking.BedsWanted != 2 || booking.UnitID != 42 || booking.Message != BookingKeyword {
		t.Fatalf("unexpected booking %+v", booking)
	}
	if booking.MoveInDate != "2024-01-01" {
		t.Fatalf("unexpected move-in %q", booking.MoveInDate)
	}

	delete(answers, KeyPhone)
	if _, err := NewBooking(answers, 42); err == nil {
		t.Fatal("expected error for missing phone")
	}
}

func TestAnswersCloneIsIndependent(t *testing.T) {
	a := Answers{KeyName: "Alice"}
	b := a.Clone()
	b[KeyName] = "Bob"
	if a[KeyName] != "Alice" {
		t.Fatal("clone aliases the original")
	}
}
