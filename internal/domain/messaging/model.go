package messaging

import (
	"path"
	"strings"
	"time"
)

// AttachmentType classifies an attachment URL.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentFile  AttachmentType = "file"
	AttachmentVideo AttachmentType = "video"
)

// Valid reports whether the type is one of the stored enum values.
func (t AttachmentType) Valid() bool {
	switch t {
	case AttachmentImage, AttachmentFile, AttachmentVideo:
		return true
	}
	return false
}

var (
	imageExtensions = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".bmp": {}, ".svg": {}}
	videoExtensions = map[string]struct{}{".mp4": {}, ".mov": {}, ".webm": {}, ".mkv": {}, ".avi": {}}
)

// InferAttachmentType guesses the type from the URL extension, defaulting to file.
func InferAttachmentType(url string) AttachmentType {
	clean := url
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	ext := strings.ToLower(path.Ext(clean))
	if _, ok := imageExtensions[ext]; ok {
		return AttachmentImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return AttachmentVideo
	}
	return AttachmentFile
}

// Message is one directed text communication between two users.
// Read and ReadAt are projections of the recipient's read receipt.
type Message struct {
	ID             string
	SenderID       string
	RecipientID    string
	Text           string
	AttachmentURL  *string
	AttachmentType *AttachmentType
	SentAt         time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Read           bool
	ReadAt         *time.Time
}

// Pair is an unordered pair of users stored in canonical order.
type Pair struct {
	UserID1 string
	UserID2 string
}

// CanonicalPair orders the two ids so the lexicographically smaller one comes first.
func CanonicalPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{UserID1: a, UserID2: b}
}

// Conversation is the single row kept per unordered pair of users.
type Conversation struct {
	ID            string
	UserID1       string
	UserID2       string
	LastMessageID *string
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Pair returns the canonical pair of the conversation.
func (c *Conversation) Pair() Pair {
	return Pair{UserID1: c.UserID1, UserID2: c.UserID2}
}

// HasParticipant reports whether userID is one of the two sides.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.UserID1 == userID || c.UserID2 == userID)
}

// OtherParticipant returns the side that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.UserID1 == userID {
		return c.UserID2
	}
	return c.UserID1
}

// ConversationSummary is one inbox row seen from a specific user.
type ConversationSummary struct {
	ConversationID    string
	OtherUserID       string
	OtherUserName     *string
	PhotoURL          *string
	LastMessage       *string
	LastMessageAt     time.Time
	UnreadCount       int64
	LastMessageFromMe bool
}

// ReadReceipt records that a user has read a message. At most one exists per (message, user).
type ReadReceipt struct {
	ID        string
	MessageID string
	UserID    string
	ReadAt    time.Time
}

// SearchResult is a message matched by a text search, with the sender's display name.
type SearchResult struct {
	Message
	SenderName *string
}

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit   = 50
	DefaultSearchLimit = 20
	MaxPageLimit       = 100
)

// NormalizePage clamps limit into [1, MaxPageLimit] and offset to be non-negative.
// A zero limit takes the default.
func NormalizePage(limit, offset, defaultLimit int) Page {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
