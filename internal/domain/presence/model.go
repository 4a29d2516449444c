package presence

import "time"

// Status is a user's availability.
type Status string

const (
	StatusOnline       Status = "online"
	StatusAway         Status = "away"
	StatusOffline      Status = "offline"
	StatusDoNotDisturb Status = "do_not_disturb"
)

// Valid reports whether the status is one of the stored enum values.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusOffline, StatusDoNotDisturb:
		return true
	}
	return false
}

// Presence is the last known availability of a user.
type Presence struct {
	UserID                string
	Status                Status
	LastSeenAt            time.Time
	CurrentConversationID *string
}

// TypingIndicator marks that a user is composing in a conversation.
type TypingIndicator struct {
	ID              string
	ConversationID  string
	UserID          string
	TypingStartedAt time.Time
}

// TypingState tells a caller whether the other side is typing.
type TypingState struct {
	ConversationID string
	UserID         string
	Typing         bool
	StartedAt      *time.Time
}

// SweepResult counts rows touched by a sweep.
type SweepResult struct {
	ExpiredTyping int64
	MarkedOffline int64
}
