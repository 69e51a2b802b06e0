// Package session tracks the lifecycle of one debate.
package session

import (
	"errors"
	"fmt"
)

type Status string

const (
	NotStarted  Status = "NOT_STARTED"
	Initialized Status = "INITIALIZED"
	InProgress  Status = "IN_PROGRESS"
	Paused      Status = "PAUSED"
	Completed   Status = "COMPLETED"
)

// Action names a lifecycle request.
type Action string

const (
	ActionInitialize Action = "initialize"
	ActionStart      Action = "start"
	ActionPause      Action = "pause"
	ActionResume     Action = "resume"
	ActionSkip       Action = "skip"
	ActionComplete   Action = "complete"
	ActionReset      Action = "reset"
)

const DefaultMaxRounds = 5

var ErrInvalidTransition = errors.New("invalid session transition")

// TransitionError reports a request that the current status does not allow.
type TransitionError struct {
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a session that is %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// edges lists, per action, the statuses it may start from and where it lands.
// Reset abandons a debate from any status, mid-stream included.
var edges = map[Action]struct {
	from []Status
	to   Status
}{
	ActionInitialize: {[]Status{NotStarted}, Initialized},
	ActionStart:      {[]Status{Initialized}, InProgress},
	ActionResume:     {[]Status{Paused}, InProgress},
	ActionPause:      {[]Status{InProgress}, Paused},
	ActionSkip:       {[]Status{InProgress, Paused}, Completed},
	ActionComplete:   {[]Status{InProgress, Paused}, Completed},
	ActionReset:      {[]Status{NotStarted, Initialized, InProgress, Paused, Completed}, NotStarted},
}

// Config is what the user picked when creating the debate.
type Config struct {
	TopicID       string
	Topic         string
	UserSide      string
	Affirmative   Persona
	Negative      Persona
	AutoPlaySpeed string
}

type Persona struct {
	Personality    string
	ExpertiseLevel string
}

// Session is the lifecycle value. It carries no I/O; callers perform the
// server call first and then apply the matching transition.
type Session struct {
	ID           string
	Status       Status
	CurrentRound int
	MaxRounds    int
	Judging      bool
	Config       Config
}

func New(maxRounds int) *Session {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Session{Status: NotStarted, MaxRounds: maxRounds}
}

// Can reports whether action is legal from the current status.
func (s *Session) Can(action Action) bool {
	e, ok := edges[action]
	if !ok {
		return false
	}
	for _, from := range e.from {
		if s.Status == from {
			return true
		}
	}
	return false
}

func (s *Session) CanInitialize() bool { return s.Can(ActionInitialize) }
func (s *Session) CanStart() bool      { return s.Can(ActionStart) }
func (s *Session) CanResume() bool     { return s.Can(ActionResume) }
func (s *Session) CanComplete() bool   { return s.Can(ActionComplete) }

// CanPause and CanSkip are false while the judges deliberate.
func (s *Session) CanPause() bool { return s.Can(ActionPause) && !s.Judging }
func (s *Session) CanSkip() bool  { return s.Can(ActionSkip) && !s.Judging }

// Apply performs action, returning a *TransitionError if it is not allowed.
func (s *Session) Apply(action Action) error {
	if !s.Can(action) {
		return &TransitionError{From: s.Status, Action: action}
	}
	s.Status = edges[action].to
	return nil
}

// Initialize records the server-assigned ID and starts at round 1.
func (s *Session) Initialize(id string, cfg Config) error {
	if err := s.Apply(ActionInitialize); err != nil {
		return err
	}
	s.ID = id
	s.Config = cfg
	s.CurrentRound = 1
	s.Judging = false
	return nil
}

// Reset returns to NOT_STARTED and forgets the session.
func (s *Session) Reset() {
	*s = Session{Status: NotStarted, MaxRounds: s.MaxRounds}
}

// SetRound follows the server's round announcements.
func (s *Session) SetRound(n int) {
	if n < 1 {
		n = 1
	}
	s.CurrentRound = n
}

// AdvanceRound moves to the next round and reports whether the debate has
// run out of rounds.
func (s *Session) AdvanceRound() (exhausted bool) {
	s.CurrentRound++
	return s.RoundsExhausted()
}

// RoundsExhausted reports whether the last round has been argued.
func (s *Session) RoundsExhausted() bool {
	return s.CurrentRound > s.MaxRounds
}

// JudgingRound is the pseudo-round used for post-debate judging turns.
func (s *Session) JudgingRound() int {
	return s.MaxRounds + 1
}

// EnterJudging marks the judging sub-phase of an in-progress debate.
func (s *Session) EnterJudging() {
	s.Judging = true
}
