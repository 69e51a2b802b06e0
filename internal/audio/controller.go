// Package audio drives text-to-speech playback of transcript messages.
//
// The Controller is not safe for concurrent use. It is owned by the debate
// event loop; device callbacks reach it only through the Notify function,
// which must hand the Finished value back to that loop.
package audio

import (
	"errors"
	"log/slog"
	"time"
)

type State string

const (
	Idle    State = "idle"
	Loading State = "loading"
	Playing State = "playing"
	Paused  State = "paused"
	Failed  State = "error"
)

var (
	ErrNoAudio           = errors.New("no audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Playback is one opened audio resource. Close releases it and must be safe
// to call more than once.
type Playback interface {
	Play() error
	Pause() error
	Resume() error
	Position() time.Duration
	Close() error
}

// Player opens a playback for an encoded clip. onEnd is invoked from the
// device goroutine when the clip finishes (err == nil) or fails.
type Player interface {
	Open(clip []byte, onEnd func(err error)) (Playback, error)
}

// Request asks the owner to synthesize speech for a message.
type Request struct {
	MessageID string
	Text      string
	Role      string
	gen       uint64
}

// Finished reports that a playback ended on its own.
type Finished struct {
	MessageID string
	Err       error
	gen       uint64
}

// Status is the playback summary for display.
type Status struct {
	CurrentMessageID string
	IsPlaying        bool
	Position         time.Duration
}

// Controller guarantees at most one message is loading or playing at a
// time and that every playback is closed when it stops for any reason.
type Controller struct {
	player Player
	notify func(Finished)
	logger *slog.Logger

	current  string
	gen      uint64
	playback Playback
	states   map[string]State
	errs     map[string]error
}

func NewController(player Player, notify func(Finished), logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(Finished) {}
	}
	return &Controller{
		player: player,
		notify: notify,
		logger: logger,
		states: make(map[string]State),
		errs:   make(map[string]error),
	}
}

// Toggle is the single user action on a message. Playing pauses, paused
// resumes, anything else stops the active message and starts loading this
// one. A non-nil Request must be synthesized and passed to Deliver.
func (c *Controller) Toggle(messageID, text, role string) *Request {
	if c.current == messageID {
		switch c.states[messageID] {
		case Playing:
			if err := c.playback.Pause(); err != nil {
				c.fail(messageID, err)
				return nil
			}
			c.states[messageID] = Paused
			return nil
		case Paused:
			if err := c.playback.Resume(); err != nil {
				c.fail(messageID, err)
				return nil
			}
			c.states[messageID] = Playing
			return nil
		case Loading:
			return nil
		}
	}

	c.Stop()
	c.gen++
	c.current = messageID
	c.states[messageID] = Loading
	delete(c.errs, messageID)
	return &Request{MessageID: messageID, Text: text, Role: role, gen: c.gen}
}

// Deliver completes a Request with the synthesized clip or the error that
// prevented it. Results for superseded requests are discarded.
func (c *Controller) Deliver(req *Request, clip []byte, err error) {
	if req == nil || req.gen != c.gen || c.current != req.MessageID {
		return
	}
	if err != nil {
		c.fail(req.MessageID, err)
		return
	}
	if len(clip) == 0 {
		c.fail(req.MessageID, ErrNoAudio)
		return
	}

	id, gen := req.MessageID, req.gen
	pb, err := c.player.Open(clip, func(err error) {
		c.notify(Finished{MessageID: id, Err: err, gen: gen})
	})
	if err != nil {
		c.fail(id, err)
		return
	}
	c.playback = pb
	if err := pb.Play(); err != nil {
		c.fail(id, err)
		return
	}
	c.states[id] = Playing
	c.logger.Debug("audio playing", "message", id)
}

// Finish handles a Finished notification on the owner's loop.
func (c *Controller) Finish(f Finished) {
	if f.gen != c.gen || c.current != f.MessageID {
		return
	}
	if f.Err != nil {
		c.fail(f.MessageID, f.Err)
		return
	}
	c.release()
	c.states[f.MessageID] = Idle
	c.current = ""
}

// Stop halts whatever is loading or playing and returns it to idle.
func (c *Controller) Stop() {
	if c.current == "" {
		return
	}
	c.release()
	if st := c.states[c.current]; st != Failed {
		c.states[c.current] = Idle
	}
	c.current = ""
	c.gen++
}

// State returns the playback state of a message; unknown messages are idle.
func (c *Controller) State(messageID string) State {
	if st, ok := c.states[messageID]; ok {
		return st
	}
	return Idle
}

// Err returns the last failure recorded for a message.
func (c *Controller) Err(messageID string) error {
	return c.errs[messageID]
}

// States returns a copy of every non-idle state.
func (c *Controller) States() map[string]State {
	out := make(map[string]State, len(c.states))
	for id, st := range c.states {
		if st != Idle {
			out[id] = st
		}
	}
	return out
}

func (c *Controller) Status() Status {
	s := Status{CurrentMessageID: c.current}
	if c.current != "" && c.states[c.current] == Playing {
		s.IsPlaying = true
	}
	if c.playback != nil {
		s.Position = c.playback.Position()
	}
	return s
}

func (c *Controller) fail(messageID string, err error) {
	c.logger.Warn("audio playback failed", "message", messageID, "error", err)
	c.release()
	c.states[messageID] = Failed
	c.errs[messageID] = err
	if c.current == messageID {
		c.current = ""
		c.gen++
	}
}

func (c *Controller) release() {
	if c.playback == nil {
		return
	}
	if err := c.playback.Close(); err != nil {
		c.logger.Debug("closing playback", "error", err)
	}
	c.playback = nil
}
