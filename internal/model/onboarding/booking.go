package onboarding

import (
	"fmt"
	"strconv"
)

const (
	MinUnitID = 10
	MaxUnitID = 9899

	// BookingKeyword confirms a tour once onboarding is complete.
	BookingKeyword = "book"
)

// Answers maps step keys to the trimmed text the visitor supplied.
type Answers map[string]string

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Booking is the tour request sent to the leasing endpoint.
type Booking struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	MoveInDate string `json:"move_in_date"`
	BedsWanted int    `json:"beds_wanted"`
	Message    string `json:"message"`
	UnitID     int    `json:"unit_id"`
}

// RandSource is the subset of math/rand/v2 used to draw unit ids.
type RandSource interface {
	IntN(n int) int
}

// NewUnitID draws a unit id uniformly from [MinUnitID, MaxUnitID].
func NewUnitID(r RandSource) int {
	return MinUnitID + r.IntN(MaxUnitID-MinUnitID+1)
}

// NewBooking assembles a booking from completed answers. Beds is converted
// to an integer here and nowhere earlier.
func NewBooking(answers Answers, unitID int) (Booking, error) {
	for _, key := range RequiredKeys {
		if _, ok := answers[key]; !ok {
			return Booking{}, fmt.Errorf("answer %q is missing", key)
		}
	}
	beds, err := strconv.Atoi(answers[KeyBeds])
	if err != nil {
		return Booking{}, fmt.Errorf("beds %q is not an integer: %w", answers[KeyBeds], err)
	}
	return Booking{
		Name:       answers[KeyName],
		Email:      answers[KeyEmail],
		Phone:      answers[KeyPhone],
		MoveInDate: answers[KeyMoveIn],
		BedsWanted: beds,
		Message:    BookingKeyword,
		UnitID:     unitID,
	}, nil
}
