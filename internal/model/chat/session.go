package chat

import (
	"time"

	"github.com/homewiz/lease-concierge/backend/internal/model/onboarding"
)

// Session is a point-in-time copy of one ephemeral conversation.
type Session struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Stage     onboarding.Stage  `json:"stage"`
	Busy      bool              `json:"busy"`
	Messages  []Message         `json:"messages"`
	Answers   map[string]string `json:"answers"`
}
