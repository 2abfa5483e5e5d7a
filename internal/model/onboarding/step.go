package onboarding

import "regexp"

// Answer keys collected during onboarding. They double as the lookup keys
// used when the booking payload is assembled.
const (
	KeyName   = "name"
	KeyEmail  = "email"
	KeyPhone  = "phone"
	KeyMoveIn = "moveIn"
	KeyBeds   = "beds"
)

// RequiredKeys lists the answers a booking cannot be built without.
var RequiredKeys = []string{KeyName, KeyEmail, KeyPhone, KeyMoveIn, KeyBeds}

// Validator reports whether a trimmed answer is acceptable.
type Validator func(value string) bool

// Step is one onboarding question with its optional validation rule.
type Step struct {
	Key      string
	Question string
	Validate Validator
	Error    string
}

// Accepts reports whether value passes the step's validator. Steps without a
// validator accept anything.
func (s Step) Accepts(value string) bool {
	if s.Validate == nil {
		return true
	}
	return s.Validate(value)
}

// Catalog is the ordered, read-only list of onboarding steps.
type Catalog struct {
	steps []Step
}

// NewCatalog copies steps into a catalog.
func NewCatalog(steps []Step) Catalog {
	return Catalog{steps: append([]Step(nil), steps...)}
}

// Len returns the number of steps.
func (c Catalog) Len() int {
	return len(c.steps)
}

// At returns the step at index i.
func (c Catalog) At(i int) (Step, bool) {
	if i < 0 || i >= len(c.steps) {
		return Step{}, false
	}
	return c.steps[i], true
}

// Steps returns a copy of the catalog contents.
func (c Catalog) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// PatternValidator matches value against pattern. The match is unanchored
// unless the pattern anchors itself.
func PatternValidator(re *regexp.Regexp) Validator {
	return func(value string) bool {
		return re.MatchString(value)
	}
}

var (
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	bedsPattern  = regexp.MustCompile(`^[0-9]+$`)
)

// DefaultCatalog returns the built-in five question sequence.
func DefaultCatalog() Catalog {
	return NewCatalog([]Step{
		{Key: KeyName, Question: "What's your name?"},
		{
			Key:      KeyEmail,
			Question: "What's your email address?",
			Validate: PatternValidator(emailPattern),
			Error:    "Please enter a valid email address.",
		},
		{
			Key:      KeyPhone,
			Question: "What's your phone number?",
			Validate: PatternValidator(phonePattern),
			Error:    "Enter a valid 10-digit phone number.",
		},
		{Key: KeyMoveIn, Question: "When would you like to move in?"},
		{
			Key:      KeyBeds,
			Question: "How many beds are you looking for?",
			Validate: PatternValidator(bedsPattern),
			Error:    "Please enter a valid number of beds.",
		},
	})
}
