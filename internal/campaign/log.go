package campaign

import (
	"errors"
	"sync"

	"github.com/tatianab/hero-campaign/internal/models"
)

// ErrNoPending is returned when a placeholder to fill in does not exist.
var ErrNoPending = errors.New("no pending message with that id")

// Log is the ordered, append-only conversation of one area.
type Log struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewLog returns a log seeded with msgs.
func NewLog(msgs []models.Message) *Log {
	l := &Log{}
	l.messages = append(l.messages, msgs...)
	return l
}

// Append adds msg to the end of the log.
func (l *Log) Append(msg models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// Messages returns a copy of every entry, placeholders included.
func (l *Log) Messages() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Finalized returns a copy of the entries that are not typing placeholders.
func (l *Log) Finalized() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Message, 0, len(l.messages))
	for _, m := range l.messages {
		if !m.Pending {
			out = append(out, m)
		}
	}
	return out
}

// Len counts finalized entries.
func (l *Log) Len() int {
	return len(l.Finalized())
}

// HasPending reports whether a reply is still being generated.
func (l *Log) HasPending() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.messages {
		if m.Pending {
			return true
		}
	}
	return false
}

// ReplacePending swaps the placeholder with the given id for msg, keeping its
// position in the log.
func (l *Log) ReplacePending(id string, msg models.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, m := range l.messages {
		if m.ID == id && m.Pending {
			msg.Pending = false
			l.messages[i] = msg
			return nil
		}
	}
	return ErrNoPending
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}
