package debate

import (
	"time"

	"aidebate/internal/audio"
	"aidebate/internal/scoring"
	"aidebate/internal/session"
	"aidebate/internal/transcript"
	"aidebate/internal/turn"
)

// Snapshot is an immutable copy of everything a view needs to render.
type Snapshot struct {
	Mode      Mode
	Language  string
	SessionID string
	Topic     string
	Status    session.Status
	Round     int
	MaxRounds int
	Judging   bool

	Messages []transcript.Message
	Preview  turn.Buffer

	SideA  float64
	SideB  float64
	Rounds []scoring.RoundScore

	Remaining    time.Duration
	TimerRunning bool

	InputEnabled bool
	Streaming    bool
	Pending      session.Action

	Audio    map[string]audio.State
	Playback audio.Status

	Notices   []Notice
	Result    *Result
	ArchiveID string

	CanInitialize bool
	CanStart      bool
	CanPause      bool
	CanResume     bool
	CanSkip       bool
	CanComplete   bool
}

// Leader names the side ahead on total score, or "" on a tie.
func (s Snapshot) Leader() string {
	switch {
	case s.SideA > s.SideB:
		return string(transcript.Affirmative)
	case s.SideB > s.SideA:
		return string(transcript.Negative)
	}
	return ""
}

// LastNotice returns the most recent notice, if any.
func (s Snapshot) LastNotice() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

func (e *Engine) snapshot() Snapshot {
	st := e.state
	sess := st.Session
	a, b := st.Scores.Totals()
	idle := e.pending == ""

	snap := Snapshot{
		Mode:         st.Mode,
		Language:     st.Language,
		SessionID:    sess.ID,
		Topic:        sess.Config.Topic,
		Status:       sess.Status,
		Round:        sess.CurrentRound,
		MaxRounds:    sess.MaxRounds,
		Judging:      sess.Judging,
		Messages:     st.Transcript.Messages(),
		Preview:      st.Turns.Buffer(),
		SideA:        a,
		SideB:        b,
		Rounds:       st.Scores.Rounds(),
		Remaining:    st.Timer.Remaining(),
		TimerRunning: st.Timer.Running(),
		InputEnabled: st.InputEnabled,
		Streaming:    e.streams.Active() != 0,
		Pending:      e.pending,
		Audio:        e.audio.States(),
		Playback:     e.audio.Status(),
		Notices:      append([]Notice(nil), st.Notices...),
		ArchiveID:    e.archiveID,

		CanInitialize: idle && sess.CanInitialize(),
		CanStart:      idle && sess.CanStart(),
		CanPause:      idle && sess.CanPause(),
		CanResume:     idle && sess.CanResume(),
		CanSkip:       idle && sess.CanSkip(),
		CanComplete:   idle && sess.CanComplete(),
	}
	if st.Result != nil {
		r := *st.Result
		snap.Result = &r
	}
	return snap
}
