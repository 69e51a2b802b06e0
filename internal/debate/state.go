// Package debate wires the frame stream to the session, turn, score and
// audio state of one debate and runs them on a single event loop.
package debate

import (
	"log/slog"
	"strings"
	"time"

	"aidebate/internal/events"
	"aidebate/internal/scoring"
	"aidebate/internal/session"
	"aidebate/internal/transcript"
	"aidebate/internal/turn"
)

type Mode string

const (
	Automated   Mode = "automated"
	Interactive Mode = "interactive"
)

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-facing message such as a toast.
type Notice struct {
	Level NoticeLevel
	Text  string
	At    time.Time
}

// Result is the verdict reported by the server at the end of a debate.
type Result struct {
	Winner     string
	SideA      *float64
	SideB      *float64
	Assessment string
}

// Effects tells the engine what I/O an event requires.
type Effects struct {
	CloseStream bool
	// RequestComplete asks the server for a verdict (interactive rounds exhausted).
	RequestComplete bool
	// Completed is set when the event moved the session to COMPLETED.
	Completed bool
	// Paused is set when the server paused the debate.
	Paused bool
}

const maxNotices = 20

// State is the session context handed to every event handler. Nothing in
// it is shared; the engine owns exactly one.
type State struct {
	Mode       Mode
	Language   string
	Session    *session.Session
	Turns      turn.Accumulator
	Scores     scoring.Board
	Transcript *transcript.Store
	Timer      *session.Countdown

	InputEnabled bool
	Result       *Result
	Notices      []Notice

	logger *slog.Logger
	now    func() time.Time
}

func NewState(mode Mode, language string, maxRounds int, roundDuration time.Duration, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	if language == "" {
		language = "en"
	}
	return &State{
		Mode:       mode,
		Language:   language,
		Session:    session.New(maxRounds),
		Transcript: transcript.NewStore(),
		Timer:      session.NewCountdown(roundDuration),
		logger:     logger,
		now:        time.Now,
	}
}

// Apply routes ev to its handler. Unknown kinds are ignored.
func (s *State) Apply(ev events.Event) Effects {
	if ev.Kind <= events.KindUnknown || ev.Kind >= events.KindCount {
		s.logger.Debug("ignoring unknown event", "event", ev.Name)
		return Effects{}
	}
	return handlers[ev.Kind](s, ev.Payload)
}

// Initialize records a freshly created session and clears everything left
// over from a previous one.
func (s *State) Initialize(id string, cfg session.Config) error {
	if err := s.Session.Initialize(id, cfg); err != nil {
		return err
	}
	s.clear()
	return nil
}

// Begin applies start or resume and restarts the round countdown.
func (s *State) Begin(action session.Action) error {
	if err := s.Session.Apply(action); err != nil {
		return err
	}
	s.Timer.Start()
	s.InputEnabled = s.Mode == Interactive && !s.Session.RoundsExhausted()
	return nil
}

// Pause applies the pause transition. The partial turn is discarded since
// its connection is about to close.
func (s *State) Pause() error {
	if err := s.Session.Apply(session.ActionPause); err != nil {
		return err
	}
	s.Timer.Stop()
	s.Turns.Reset()
	s.InputEnabled = false
	return nil
}

// Finish moves to COMPLETED through skip, complete or the end of the stream.
func (s *State) Finish(action session.Action, result *Result) error {
	if err := s.Session.Apply(action); err != nil {
		return err
	}
	s.Timer.Stop()
	s.Turns.Reset()
	s.InputEnabled = false
	if result != nil {
		s.Result = mergeResult(s.Result, result)
	}
	return nil
}

// Reset forgets the session entirely.
func (s *State) Reset() {
	s.Session.Reset()
	s.clear()
	s.Notices = nil
}

// StreamClosed is called whenever the active connection goes away.
func (s *State) StreamClosed() {
	s.Turns.Reset()
}

func (s *State) clear() {
	s.Turns.Reset()
	s.Scores.Reset()
	s.Transcript.Clear()
	s.Timer.Stop()
	s.InputEnabled = false
	s.Result = nil
}

func (s *State) notify(level NoticeLevel, text string) {
	s.Notices = append(s.Notices, Notice{Level: level, Text: text, At: s.now()})
	if len(s.Notices) > maxNotices {
		s.Notices = s.Notices[len(s.Notices)-maxNotices:]
	}
}

// userSide is the side the human argues, defaulting to affirmative.
func (s *State) userSide() transcript.Speaker {
	if side, ok := transcript.ParseSide(s.Session.Config.UserSide); ok {
		return side
	}
	return transcript.Affirmative
}

// bySide places user and AI totals on the affirmative and negative slots
// according to the side the human argues.
func (s *State) bySide(user, ai *float64) (aff, neg *float64) {
	if s.userSide() == transcript.Negative {
		return ai, user
	}
	return user, ai
}

func (s *State) append(m transcript.Message, timestamp string) {
	if m.Timestamp.IsZero() {
		m.Timestamp = parseTimestamp(timestamp, s.now)
	}
	if m.Role == "" {
		m.Role = string(m.Speaker)
	}
	if _, err := s.Transcript.Append(m); err != nil {
		s.logger.Warn("dropping message", "id", m.ID, "error", err)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(v string, now func() time.Time) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return now()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t
		}
	}
	return now()
}

func mergeResult(prev, next *Result) *Result {
	if prev == nil {
		out := *next
		return &out
	}
	out := *prev
	if next.Winner != "" {
		out.Winner = next.Winner
	}
	if next.SideA != nil {
		out.SideA = next.SideA
	}
	if next.SideB != nil {
		out.SideB = next.SideB
	}
	if next.Assessment != "" {
		out.Assessment = next.Assessment
	}
	return &out
}
