// Package redact keeps message content and user identifiers out of plain-text logs.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Level defines how much user content reaches the logs.
type Level string

const (
	// LevelNone replaces content with a placeholder.
	LevelNone Level = "none"
	// LevelHashed keeps message length and hashes emails, phone numbers and ids.
	LevelHashed Level = "hashed"
	// LevelFull logs content as is. Development only.
	LevelFull Level = "full"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// Redactor sanitizes log fields according to its level.
type Redactor struct {
	level Level
	salt  string
}

// New creates a Redactor. Unknown levels fall back to hashed.
func New(level string, salt string) *Redactor {
	l := Level(strings.ToLower(strings.TrimSpace(level)))
	switch l {
	case LevelNone, LevelHashed, LevelFull:
	default:
		l = LevelHashed
	}
	return &Redactor{level: l, salt: salt}
}

// Level reports the effective level.
func (r *Redactor) Level() Level {
	if r == nil {
		return LevelHashed
	}
	return r.level
}

// MessageText sanitizes message bodies and search queries.
func (r *Redactor) MessageText(text string) string {
	switch r.Level() {
	case LevelFull:
		return text
	case LevelNone:
		return "[REDACTED]"
	default:
		masked := emailPattern.ReplaceAllStringFunc(text, func(match string) string {
			return fmt.Sprintf("[EMAIL:%s]", r.hash(match))
		})
		masked = phonePattern.ReplaceAllStringFunc(masked, func(match string) string {
			return fmt.Sprintf("[PHONE:%s]", r.hash(match))
		})
		return fmt.Sprintf("[TEXT:%d chars:%s]", len([]rune(text)), r.hash(masked))
	}
}

// UserID sanitizes a user identifier. Hashed ids stay stable so a user's requests can be correlated.
func (r *Redactor) UserID(userID string) string {
	if userID == "" {
		return ""
	}
	switch r.Level() {
	case LevelFull:
		return userID
	case LevelNone:
		return "[REDACTED]"
	default:
		return "u_" + r.hash(userID)
	}
}

func (r *Redactor) hash(data string) string {
	salt := ""
	if r != nil {
		salt = r.salt
	}
	sum := sha256.Sum256([]byte(data + salt))
	return hex.EncodeToString(sum[:])[:8]
}
