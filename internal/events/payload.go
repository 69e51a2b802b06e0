package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"aidebate/internal/sse"
)

// ID accepts both JSON numbers and strings. The server emits numeric
// database keys for sessions and arguments.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Feedback is the judge assessment attached to some completion payloads.
type Feedback struct {
	OverallAssessment string `json:"overall_assessment,omitempty"`
}

// Payload is the union of every field the stream carries. Absent numeric
// fields stay nil so handlers can tell "missing" from zero.
type Payload struct {
	Chunk      string `json:"chunk,omitempty"`
	Complete   bool   `json:"complete,omitempty"`
	Content    string `json:"content,omitempty"`
	Round      *int   `json:"round,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Speaker    string `json:"speaker,omitempty"`
	Side       string `json:"side,omitempty"`
	Role       string `json:"role,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Winner     string `json:"winner,omitempty"`
	Position   string `json:"position,omitempty"`
	ArgumentID ID     `json:"argumentId,omitempty"`
	JudgeNum   *int   `json:"judgeNumber,omitempty"`
	Status     string `json:"status,omitempty"`

	AffirmativeScore *float64 `json:"affirmativeScore,omitempty"`
	NegativeScore    *float64 `json:"negativeScore,omitempty"`
	AffirmativeTotal *float64 `json:"affirmativeTotal,omitempty"`
	NegativeTotal    *float64 `json:"negativeTotal,omitempty"`
	UserTotal        *float64 `json:"userTotal,omitempty"`
	AITotal          *float64 `json:"aiTotal,omitempty"`

	Error    string    `json:"error,omitempty"`
	Message  string    `json:"message,omitempty"`
	Feedback *Feedback `json:"feedback,omitempty"`
}

// Event is a decoded frame.
type Event struct {
	Kind    Kind
	Name    string
	Payload Payload
}

// Decode converts a frame into an Event. Unknown event names decode to
// KindUnknown with an empty payload so callers can skip them cheaply.
func Decode(f sse.Frame) (Event, error) {
	ev := Event{Kind: ParseKind(f.Event), Name: f.Event}
	if ev.Kind == KindUnknown {
		return ev, nil
	}
	if err := json.Unmarshal(f.Data, &ev.Payload); err != nil {
		return ev, fmt.Errorf("decode %s payload: %w", f.Event, err)
	}
	return ev, nil
}

// RoundOr returns the payload round, or fallback when absent.
func (p Payload) RoundOr(fallback int) int {
	if p.Round != nil {
		return *p.Round
	}
	return fallback
}

// ErrorText picks the most specific error description available.
func (p Payload) ErrorText() string {
	switch {
	case p.Error != "":
		return p.Error
	case p.Message != "":
		return p.Message
	default:
		return ""
	}
}

// First returns the first non-nil value, or 0.
func First(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
