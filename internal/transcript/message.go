// Package transcript holds finished debate turns.
package transcript

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Speaker is the role that produced a turn.
type Speaker string

const (
	Moderator   Speaker = "MODERATOR"
	Organizer   Speaker = "ORGANIZER"
	Affirmative Speaker = "AFFIRMATIVE"
	Negative    Speaker = "NEGATIVE"
	Judge       Speaker = "JUDGE"
)

// ParseSide maps a side string to Affirmative or Negative.
func ParseSide(s string) (Speaker, bool) {
	switch Speaker(strings.ToUpper(strings.TrimSpace(s))) {
	case Affirmative:
		return Affirmative, true
	case Negative:
		return Negative, true
	}
	return "", false
}

// Opposite returns the other debating side. Non-sides map to Affirmative.
func (s Speaker) Opposite() Speaker {
	if s == Affirmative {
		return Negative
	}
	return Affirmative
}

type MessageType string

const (
	Announcement MessageType = "ANNOUNCEMENT"
	Argument     MessageType = "ARGUMENT"
	Summary      MessageType = "SUMMARY"
	Evaluation   MessageType = "EVALUATION"
)

type Message struct {
	ID        string
	Speaker   Speaker
	Role      string
	Content   string
	Timestamp time.Time
	Round     int
	Type      MessageType
}

// NewID returns a fresh message identifier.
func NewID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

var ErrDuplicate = errors.New("message already in transcript")

// Store is append-only. Messages are never edited once appended.
type Store struct {
	messages []Message
	ids      map[string]struct{}
}

func NewStore() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Append adds m. An empty ID is filled in; a duplicate ID is rejected so a
// replayed completion never produces a second copy of the same turn.
func (s *Store) Append(m Message) (Message, error) {
	if m.ID == "" {
		m.ID = NewID("")
	}
	if _, ok := s.ids[m.ID]; ok {
		return Message{}, fmt.Errorf("%w: %s", ErrDuplicate, m.ID)
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.Round < 0 {
		m.Round = 0
	}
	s.ids[m.ID] = struct{}{}
	s.messages = append(s.messages, m)
	return m, nil
}

// Messages returns a copy of the transcript in append order.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int { return len(s.messages) }

// Get finds a message by ID.
func (s *Store) Get(id string) (Message, bool) {
	if _, ok := s.ids[id]; !ok {
		return Message{}, false
	}
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Clear drops every message. Only session initialization and reset call it.
func (s *Store) Clear() {
	s.messages = nil
	s.ids = make(map[string]struct{})
}
