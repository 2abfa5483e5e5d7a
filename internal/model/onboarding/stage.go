package onboarding

import "fmt"

// StageKind tags the variant held by a Stage.
type StageKind string

const (
	StageOnboarding                  StageKind = "onboarding"
	StageAwaitingBookingConfirmation StageKind = "awaiting_booking_confirmation"
	StageFree                        StageKind = "free"
)

// Stage is the position of a session in the conversation:
// Onboarding(step) | AwaitingBookingConfirmation | Free.
type Stage struct {
	Kind StageKind `json:"kind"`
	Step int       `json:"step"`
}

// Onboarding is the stage that asks catalog step i.
func Onboarding(step int) Stage {
	return Stage{Kind: StageOnboarding, Step: step}
}

// AwaitingBookingConfirmation is entered once every step has been answered.
func AwaitingBookingConfirmation() Stage {
	return Stage{Kind: StageAwaitingBookingConfirmation}
}

// Free is the open conversation stage.
func Free() Stage {
	return Stage{Kind: StageFree}
}

// Complete reports whether onboarding has finished.
func (s Stage) Complete() bool {
	return s.Kind == StageAwaitingBookingConfirmation || s.Kind == StageFree
}

func (s Stage) String() string {
	if s.Kind == StageOnboarding {
		return fmt.Sprintf("%s(%d)", s.Kind, s.Step)
	}
	return string(s.Kind)
}
