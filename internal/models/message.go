package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderCharacter Sender = "character"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderCharacter
}

// Message is a single entry in an area's conversation log.
type Message struct {
	ID        string    `yaml:"id"`
	Sender    Sender    `yaml:"sender"`
	Speaker   string    `yaml:"speaker,omitempty"` // display name; empty for the player
	Text      string    `yaml:"text"`
	Pending   bool      `yaml:"pending,omitempty"` // typing placeholder, never persisted
	CreatedAt time.Time `yaml:"created_at,omitempty"`
}

// NewMessageID returns a time-ordered identifier so logs diff stably.
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewUserMessage builds a finalized message from the player.
func NewUserMessage(text string, now time.Time) Message {
	return Message{
		ID:        NewMessageID(),
		Sender:    SenderUser,
		Text:      text,
		CreatedAt: now,
	}
}

// NewCharacterMessage builds a finalized message spoken by speaker.
func NewCharacterMessage(speaker, text string, now time.Time) Message {
	return Message{
		ID:        NewMessageID(),
		Sender:    SenderCharacter,
		Speaker:   speaker,
		Text:      text,
		CreatedAt: now,
	}
}

// NewPlaceholder builds the "typing…" entry shown while speaker's reply is generated.
func NewPlaceholder(speaker string, now time.Time) Message {
	return Message{
		ID:        NewMessageID(),
		Sender:    SenderCharacter,
		Speaker:   speaker,
		Text:      "…",
		Pending:   true,
		CreatedAt: now,
	}
}

// Validate reports whether a stored message is well formed.
// Pending placeholders are never valid on disk.
func (m Message) Validate() bool {
	if strings.TrimSpace(m.ID) == "" || !m.Sender.Valid() {
		return false
	}
	if strings.TrimSpace(m.Text) == "" || m.Pending {
		return false
	}
	return true
}
