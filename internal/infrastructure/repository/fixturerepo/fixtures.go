package fixturerepo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/utils/idgen"
)

// Fixtures is the YAML document seeding mock mode.
type Fixtures struct {
	Users    []FixtureUser    `yaml:"users"`
	Messages []FixtureMessage `yaml:"messages"`
}

// FixtureUser is a user row of the fixture file.
type FixtureUser struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	PhotoURL *string `yaml:"photo_url"`
}

// FixtureMessage is a message row of the fixture file. Messages without an id get one;
// read messages get a receipt for their recipient stamped one minute after sent_at.
type FixtureMessage struct {
	ID             string    `yaml:"id"`
	SenderID       string    `yaml:"sender_id"`
	RecipientID    string    `yaml:"recipient_id"`
	Text           string    `yaml:"message_text"`
	AttachmentURL  *string   `yaml:"attachment_url"`
	AttachmentType *string   `yaml:"attachment_type"`
	SentAt         time.Time `yaml:"sent_at"`
	Read           bool      `yaml:"read"`
}

// ParseFixtures decodes a fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, m := range f.Messages {
		if strings.TrimSpace(m.SenderID) == "" || strings.TrimSpace(m.RecipientID) == "" {
			return nil, fmt.Errorf("fixture message %d: sender_id and recipient_id are required", i)
		}
		if strings.TrimSpace(m.Text) == "" {
			return nil, fmt.Errorf("fixture message %d: message_text is required", i)
		}
		if m.SentAt.IsZero() {
			return nil, fmt.Errorf("fixture message %d: sent_at is required", i)
		}
	}
	return &f, nil
}

// LoadFile reads fixtures from path.
func LoadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	return ParseFixtures(data)
}

// Seed applies fixtures through the regular write path so conversations and receipts
// follow the same rules as live writes.
func (s *Store) Seed(ctx context.Context, f *Fixtures) error {
	for _, u := range f.Users {
		s.PutUser(User{ID: u.ID, Name: u.Name, PhotoURL: u.PhotoURL})
	}

	for i, fm := range f.Messages {
		sentAt := fm.SentAt.UTC()
		id := fm.ID
		if id == "" {
			id = idgen.NewMessageIDAt(sentAt)
		}
		msg := &messaging.Message{
			ID:            id,
			SenderID:      fm.SenderID,
			RecipientID:   fm.RecipientID,
			Text:          fm.Text,
			AttachmentURL: fm.AttachmentURL,
			SentAt:        sentAt,
			CreatedAt:     sentAt,
			UpdatedAt:     sentAt,
		}
		if fm.AttachmentURL != nil {
			kind := messaging.InferAttachmentType(*fm.AttachmentURL)
			if fm.AttachmentType != nil {
				kind = messaging.AttachmentType(*fm.AttachmentType)
			}
			msg.AttachmentType = &kind
		}
		if _, err := s.CreateMessage(ctx, msg); err != nil {
			return fmt.Errorf("seed message %d: %w", i, err)
		}
		if fm.Read && fm.SenderID != fm.RecipientID {
			if _, err := s.UpsertReadReceipt(ctx, &messaging.ReadReceipt{
				ID:        idgen.NewUUID(),
				MessageID: id,
				UserID:    fm.RecipientID,
				ReadAt:    sentAt.Add(time.Minute),
			}); err != nil {
				return fmt.Errorf("seed receipt %d: %w", i, err)
			}
		}
	}

	s.log.Info().Int("users", len(f.Users)).Int("messages", len(f.Messages)).Msg("fixtures loaded")
	return nil
}

// DefaultFixtures is the deterministic demo data served when no fixture file is configured.
func DefaultFixtures() *Fixtures {
	base := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	photo := func(id string) *string {
		url := "https://cdn.alumunity.dev/avatars/" + id + ".png"
		return &url
	}
	return &Fixtures{
		Users: []FixtureUser{
			{ID: "user-001", Name: "Aisha Khan", PhotoURL: photo("user-001")},
			{ID: "user-002", Name: "Marco Rossi", PhotoURL: photo("user-002")},
			{ID: "user-003", Name: "Priya Nair", PhotoURL: photo("user-003")},
			{ID: "dev-user", Name: "Local Developer"},
		},
		Messages: []FixtureMessage{
			{ID: "msg-demo-0001", SenderID: "user-001", RecipientID: "user-002", Text: "Hi Marco! Are you joining the alumni meetup next week?", SentAt: base, Read: true},
			{ID: "msg-demo-0002", SenderID: "user-002", RecipientID: "user-001", Text: "Absolutely, see you there.", SentAt: base.Add(5 * time.Minute), Read: true},
			{ID: "msg-demo-0003", SenderID: "user-003", RecipientID: "user-001", Text: "Could you review my resume before the career fair?", SentAt: base.Add(2 * time.Hour)},
			{ID: "msg-demo-0004", SenderID: "user-001", RecipientID: "dev-user", Text: "Welcome to AlumUnity messaging!", SentAt: base.Add(3 * time.Hour)},
			{ID: "msg-demo-0005", SenderID: "user-002", RecipientID: "dev-user", Text: "Mentorship session notes attached.", SentAt: base.Add(4 * time.Hour),
				AttachmentURL: strPtr("https://cdn.alumunity.dev/files/mentorship-notes.pdf")},
		},
	}
}

func strPtr(s string) *string { return &s }
