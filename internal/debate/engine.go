package debate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"aidebate/internal/api"
	"aidebate/internal/audio"
	"aidebate/internal/db"
	"aidebate/internal/events"
	"aidebate/internal/notify"
	"aidebate/internal/session"
	"aidebate/internal/stream"
)

// ErrStopped is returned by Snapshot once Run has returned.
var ErrStopped = errors.New("debate engine stopped")

// Backend is the debate server as seen by the engine.
type Backend interface {
	InitSession(ctx context.Context, req api.InitRequest) (api.InitResult, error)
	Start(ctx context.Context, sessionID string) (api.ControlResult, error)
	Pause(ctx context.Context, sessionID string) (api.ControlResult, error)
	Resume(ctx context.Context, sessionID string) (api.ControlResult, error)
	SkipToEnd(ctx context.Context, sessionID string) (api.ControlResult, error)
	Complete(ctx context.Context, sessionID string) (api.CompleteResult, error)
	GenerateSpeech(ctx context.Context, req api.SpeechRequest) ([]byte, error)
	StreamDebate(ctx context.Context, sessionID, language string) (io.ReadCloser, error)
	SubmitArgument(ctx context.Context, sessionID string, arg api.ArgumentRequest) (io.ReadCloser, error)
}

// Archiver stores finished debates.
type Archiver interface {
	SaveDebate(rec db.Record) (string, error)
}

// Notifier receives lifecycle events.
type Notifier interface {
	Emit(eventType string, data map[string]string)
	DebateCompleted(sessionID, topic, winner string, sideA, sideB float64)
}

type Config struct {
	Mode          Mode
	Language      string
	MaxRounds     int
	RoundDuration time.Duration
	UserID        string
	// Defaults seeds the configuration of every new session.
	Defaults     session.Config
	TickInterval time.Duration
}

type Options struct {
	Backend  Backend
	Player   audio.Player // nil disables playback
	Archiver Archiver
	Notifier Notifier
	Logger   *slog.Logger
	// OnChange is called on the engine goroutine after every state change.
	OnChange func(Snapshot)
}

// Engine is the single cooperative scheduler of a debate client. All state
// lives on the goroutine running Run; the exported methods only enqueue
// requests and are safe to call from anywhere.
type Engine struct {
	cfg      Config
	backend  Backend
	archiver Archiver
	notifier Notifier
	onChange func(Snapshot)
	logger   *slog.Logger

	state   *State
	streams *stream.Manager
	audio   *audio.Controller
	audioOn bool

	inbox chan any
	done  chan struct{}
	ctx   context.Context

	// epoch increments on reset so results of calls made for a previous
	// session are dropped.
	epoch   uint64
	pending session.Action

	// completeDue holds a completion request that arrived while another
	// control call was in flight.
	completeDue bool
	lastTick    time.Time
	archiveID   string
}

type (
	actionMsg struct {
		action  session.Action
		topicID string
		topic   string
	}
	submitMsg      struct{ text string }
	toggleAudioMsg struct{ messageID string }
	stopAudioMsg   struct{}
	languageMsg    struct{ language string }
	snapshotMsg    struct{ reply chan Snapshot }

	initDone struct {
		epoch uint64
		cfg   session.Config
		res   api.InitResult
		err   error
	}
	controlDone struct {
		epoch  uint64
		action session.Action
		res    api.ControlResult
		err    error
	}
	completeDone struct {
		epoch uint64
		res   api.CompleteResult
		err   error
	}
	speechDone struct {
		req  *audio.Request
		clip []byte
		err  error
	}
)

const inboxSize = 256

func NewEngine(cfg Config, opts Options) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = Automated
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	e := &Engine{
		cfg:      cfg,
		backend:  opts.Backend,
		archiver: opts.Archiver,
		notifier: notifier,
		onChange: opts.OnChange,
		logger:   logger,
		state:    NewState(cfg.Mode, cfg.Language, cfg.MaxRounds, cfg.RoundDuration, logger),
		streams:  stream.NewManager(logger),
		audioOn:  opts.Player != nil,
		inbox:    make(chan any, inboxSize),
		done:     make(chan struct{}),
		ctx:      context.Background(),
	}
	e.audio = audio.NewController(opts.Player, func(f audio.Finished) { e.post(f) }, logger)
	return e
}

type nopNotifier struct{}

func (nopNotifier) Emit(string, map[string]string)                           {}
func (nopNotifier) DebateCompleted(string, string, string, float64, float64) {}

// Run processes requests until ctx is cancelled. It must be called exactly
// once.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer close(e.done)
	defer e.shutdown()

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	e.lastTick = time.Now()
	e.publish()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-e.inbox:
			e.handle(msg)
			e.publish()
		case now := <-ticker.C:
			elapsed := now.Sub(e.lastTick)
			e.lastTick = now
			if e.state.Timer.Running() {
				e.state.Timer.Tick(elapsed)
				e.publish()
			}
		}
	}
}

// Done is closed after Run returns.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) post(msg any) bool {
	select {
	case e.inbox <- msg:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) Initialize(topicID, topic string) {
	e.post(actionMsg{action: session.ActionInitialize, topicID: topicID, topic: topic})
}

func (e *Engine) Start()    { e.post(actionMsg{action: session.ActionStart}) }
func (e *Engine) Pause()    { e.post(actionMsg{action: session.ActionPause}) }
func (e *Engine) Resume()   { e.post(actionMsg{action: session.ActionResume}) }
func (e *Engine) Skip()     { e.post(actionMsg{action: session.ActionSkip}) }
func (e *Engine) Complete() { e.post(actionMsg{action: session.ActionComplete}) }
func (e *Engine) Reset()    { e.post(actionMsg{action: session.ActionReset}) }

// Submit sends the user's argument in interactive mode.
func (e *Engine) Submit(text string) { e.post(submitMsg{text: text}) }

// ToggleAudio plays, pauses or resumes speech for a transcript message.
func (e *Engine) ToggleAudio(messageID string) { e.post(toggleAudioMsg{messageID: messageID}) }

func (e *Engine) StopAudio() { e.post(stopAudioMsg{}) }

// SetLanguage changes the language used for new streams, announcements and
// speech.
func (e *Engine) SetLanguage(language string) { e.post(languageMsg{language: language}) }

// Snapshot returns the current state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case e.inbox <- snapshotMsg{reply: reply}:
	case <-e.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-e.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (e *Engine) handle(msg any) {
	switch m := msg.(type) {
	case actionMsg:
		e.handleAction(m)
	case submitMsg:
		e.submit(m.text)
	case toggleAudioMsg:
		e.toggleAudio(m.messageID)
	case stopAudioMsg:
		e.audio.Stop()
	case languageMsg:
		e.setLanguage(m.language)
	case snapshotMsg:
		m.reply <- e.snapshot()
	case stream.Delivery:
		e.deliver(m)
	case initDone:
		e.initDone(m)
	case controlDone:
		e.controlDone(m)
	case completeDone:
		e.completeDone(m)
	case speechDone:
		e.audio.Deliver(m.req, m.clip, m.err)
	case audio.Finished:
		e.audio.Finish(m)
	default:
		e.logger.Warn("engine: unexpected message", "type", fmt.Sprintf("%T", msg))
	}
}

func (e *Engine) allowed(action session.Action) bool {
	s := e.state.Session
	switch action {
	case session.ActionInitialize:
		return s.CanInitialize()
	case session.ActionStart:
		return s.CanStart()
	case session.ActionResume:
		return s.CanResume()
	case session.ActionPause:
		return s.CanPause()
	case session.ActionSkip:
		return s.CanSkip()
	case session.ActionComplete:
		return s.CanComplete()
	}
	return false
}

func (e *Engine) handleAction(m actionMsg) {
	if m.action == session.ActionReset {
		e.reset()
		return
	}
	if e.pending != "" {
		e.state.notify(NoticeWarn, fmt.Sprintf("%s already in progress", e.pending))
		return
	}
	if !e.allowed(m.action) {
		err := &session.TransitionError{From: e.state.Session.Status, Action: m.action}
		e.state.notify(NoticeWarn, err.Error())
		return
	}

	e.pending = m.action
	epoch, ctx, id := e.epoch, e.ctx, e.state.Session.ID

	switch m.action {
	case session.ActionInitialize:
		cfg := e.cfg.Defaults
		cfg.TopicID = m.topicID
		cfg.Topic = m.topic
		req := e.initRequest(cfg)
		go func() {
			res, err := e.backend.InitSession(ctx, req)
			e.post(initDone{epoch: epoch, cfg: cfg, res: res, err: err})
		}()

	case session.ActionComplete:
		e.launchComplete(ctx, epoch, id)

	default:
		call := e.controlCall(m.action)
		action := m.action
		go func() {
			res, err := call(ctx, id)
			e.post(controlDone{epoch: epoch, action: action, res: res, err: err})
		}()
	}
}

func (e *Engine) controlCall(action session.Action) func(context.Context, string) (api.ControlResult, error) {
	switch action {
	case session.ActionStart:
		return e.backend.Start
	case session.ActionPause:
		return e.backend.Pause
	case session.ActionResume:
		return e.backend.Resume
	default:
		return e.backend.SkipToEnd
	}
}

func (e *Engine) launchComplete(ctx context.Context, epoch uint64, id string) {
	e.pending = session.ActionComplete
	e.completeDue = false
	go func() {
		res, err := e.backend.Complete(ctx, id)
		e.post(completeDone{epoch: epoch, res: res, err: err})
	}()
}

func (e *Engine) initRequest(cfg session.Config) api.InitRequest {
	req := api.InitRequest{
		TopicID:       events.ID(cfg.TopicID),
		UserID:        events.ID(e.cfg.UserID),
		AutoPlaySpeed: cfg.AutoPlaySpeed,
	}
	aff := api.AIConfig{Personality: cfg.Affirmative.Personality, ExpertiseLevel: cfg.Affirmative.ExpertiseLevel}
	neg := api.AIConfig{Personality: cfg.Negative.Personality, ExpertiseLevel: cfg.Negative.ExpertiseLevel}

	if e.cfg.Mode == Interactive {
		side := strings.ToUpper(cfg.UserSide)
		req.UserSide = side
		ai := neg
		if side == "NEGATIVE" {
			ai = aff
		}
		req.AIConfig = &ai
		return req
	}
	req.AIConfigs = map[string]api.AIConfig{"affirmative": aff, "negative": neg}
	return req
}

func (e *Engine) initDone(m initDone) {
	if m.epoch != e.epoch {
		return
	}
	e.pending = ""
	defer e.completeIfDue()
	if m.err != nil {
		e.state.notify(NoticeError, fmt.Sprintf("initialize failed: %v", m.err))
		return
	}
	if err := e.state.Initialize(m.res.SessionID.String(), m.cfg); err != nil {
		e.state.notify(NoticeWarn, err.Error())
		return
	}
	e.archiveID = ""
	e.audio.Stop()
	e.logger.Info("session initialized", "session", m.res.SessionID, "topic", m.cfg.Topic)
	e.notifier.Emit(notify.EventDebateInitialized, e.eventData())
}

func (e *Engine) controlDone(m controlDone) {
	if m.epoch != e.epoch {
		return
	}
	e.pending = ""
	defer e.completeIfDue()
	if m.err != nil {
		e.state.notify(NoticeError, fmt.Sprintf("%s failed: %v", m.action, m.err))
		return
	}

	switch m.action {
	case session.ActionStart, session.ActionResume:
		if err := e.state.Begin(m.action); err != nil {
			e.state.notify(NoticeWarn, err.Error())
			return
		}
		e.lastTick = time.Now()
		if e.cfg.Mode == Automated {
			e.openDebateStream()
		}
		if m.action == session.ActionStart {
			e.notifier.Emit(notify.EventDebateStarted, e.eventData())
		} else {
			e.notifier.Emit(notify.EventDebateResumed, e.eventData())
		}

	case session.ActionPause:
		if err := e.state.Pause(); err != nil {
			e.state.notify(NoticeWarn, err.Error())
			return
		}
		e.closeStream()
		text := "Debate paused"
		if m.res.CurrentPosition != "" {
			text += " at " + m.res.CurrentPosition
		}
		e.state.notify(NoticeInfo, text)
		e.notifier.Emit(notify.EventDebatePaused, e.eventData())

	case session.ActionSkip:
		result := &Result{Winner: m.res.Winner}
		if v, ok := m.res.FinalScores["affirmativeScore"]; ok {
			result.SideA = &v
		}
		if v, ok := m.res.FinalScores["negativeScore"]; ok {
			result.SideB = &v
		}
		e.finish(session.ActionSkip, result)
	}
}

func (e *Engine) completeDone(m completeDone) {
	if m.epoch != e.epoch {
		return
	}
	e.pending = ""
	if m.err != nil {
		e.state.notify(NoticeError, fmt.Sprintf("complete failed: %v", m.err))
		return
	}
	result := &Result{Winner: m.res.Winner}
	aff, neg := e.state.bySide(m.res.FinalScoreUser, m.res.FinalScoreAI)
	result.SideA = firstPtr(m.res.AffirmativeScore, aff)
	result.SideB = firstPtr(m.res.NegativeScore, neg)
	if m.res.Feedback != nil {
		result.Assessment = m.res.Feedback.OverallAssessment
	}
	if e.state.Session.Status == session.Completed {
		e.state.Result = mergeResult(e.state.Result, result)
		return
	}
	e.finish(session.ActionComplete, result)
}

func (e *Engine) finish(action session.Action, result *Result) {
	if err := e.state.Finish(action, result); err != nil {
		e.state.notify(NoticeWarn, err.Error())
		return
	}
	e.closeStream()
	e.completed()
}

// completed archives and announces a debate that just reached COMPLETED.
func (e *Engine) completed() {
	s := e.state
	a, b := s.Scores.Totals()
	winner, assessment := "", ""
	if s.Result != nil {
		winner, assessment = s.Result.Winner, s.Result.Assessment
		if s.Result.SideA != nil {
			a = *s.Result.SideA
		}
		if s.Result.SideB != nil {
			b = *s.Result.SideB
		}
	}

	e.notifier.DebateCompleted(s.Session.ID, s.Session.Config.Topic, winner, a, b)
	e.logger.Info("debate completed", "session", s.Session.ID, "winner", winner)

	if e.archiver == nil || e.archiveID != "" {
		return
	}
	id, err := e.archiver.SaveDebate(db.Record{
		Debate: db.Debate{
			SessionID:  s.Session.ID,
			Topic:      s.Session.Config.Topic,
			Mode:       string(s.Mode),
			Language:   s.Language,
			Status:     string(s.Session.Status),
			Winner:     winner,
			SideA:      a,
			SideB:      b,
			Assessment: assessment,
		},
		Messages: s.Transcript.Messages(),
		Rounds:   s.Scores.Rounds(),
	})
	if err != nil {
		e.logger.Warn("archiving debate", "session", s.Session.ID, "error", err)
		return
	}
	e.archiveID = id
}

func (e *Engine) eventData() map[string]string {
	return map[string]string{
		"session_id": e.state.Session.ID,
		"topic":      e.state.Session.Config.Topic,
		"mode":       string(e.cfg.Mode),
		"round":      fmt.Sprint(e.state.Session.CurrentRound),
	}
}

func (e *Engine) reset() {
	e.epoch++
	e.pending = ""
	e.completeDue = false
	e.archiveID = ""
	e.closeStream()
	e.audio.Stop()
	e.state.Reset()
}

func (e *Engine) openDebateStream() {
	id, lang := e.state.Session.ID, e.state.Language
	e.openStream(func(ctx context.Context) (io.ReadCloser, error) {
		return e.backend.StreamDebate(ctx, id, lang)
	})
}

func (e *Engine) openStream(open stream.Opener) {
	e.state.StreamClosed()
	e.streams.Open(e.ctx, open, func(d stream.Delivery) { e.post(d) })
}

func (e *Engine) closeStream() {
	e.streams.Close()
	e.state.StreamClosed()
}

func (e *Engine) deliver(d stream.Delivery) {
	if !e.streams.IsActive(d.ConnID) {
		e.logger.Debug("dropping delivery from closed connection", "conn", d.ConnID)
		return
	}

	switch {
	case d.Err != nil:
		e.streams.CloseConn(d.ConnID)
		e.state.StreamClosed()
		e.state.notify(NoticeError, fmt.Sprintf(labelsFor(e.state.Language).streamFailed, d.Err))
		e.reenableInput()

	case d.Done:
		e.streams.CloseConn(d.ConnID)
		e.state.StreamClosed()
		e.reenableInput()

	default:
		ev, err := events.Decode(d.Frame)
		if err != nil {
			e.logger.Warn("skipping undecodable frame", "event", d.Frame.Event, "error", err)
			return
		}
		e.applyEffects(e.state.Apply(ev))
	}
}

func (e *Engine) reenableInput() {
	if e.cfg.Mode == Interactive && e.state.Session.Status == session.InProgress && !e.state.Session.RoundsExhausted() {
		e.state.InputEnabled = true
	}
}

func (e *Engine) applyEffects(eff Effects) {
	if eff.CloseStream {
		e.closeStream()
	}
	if eff.Paused {
		e.notifier.Emit(notify.EventDebatePaused, e.eventData())
	}
	if eff.Completed {
		e.completed()
	}
	if eff.RequestComplete {
		e.completeDue = true
		e.completeIfDue()
	}
}

// completeIfDue sends a deferred completion request once no other control
// call is in flight and the session can still complete.
func (e *Engine) completeIfDue() {
	if !e.completeDue || e.pending != "" {
		return
	}
	if !e.state.Session.CanComplete() {
		e.completeDue = false
		return
	}
	e.launchComplete(e.ctx, e.epoch, e.state.Session.ID)
}

func (e *Engine) submit(text string) {
	text = strings.TrimSpace(text)
	switch {
	case e.cfg.Mode != Interactive:
		e.state.notify(NoticeWarn, "arguments can only be submitted in interactive mode")
		return
	case e.state.Session.Status != session.InProgress:
		e.state.notify(NoticeWarn, "the debate is not in progress")
		return
	case !e.state.InputEnabled:
		e.state.notify(NoticeWarn, "wait for the current turn to finish")
		return
	case text == "":
		return
	}

	e.state.InputEnabled = false
	id := e.state.Session.ID
	arg := api.ArgumentRequest{
		ArgumentText: text,
		RoundNumber:  e.state.Session.CurrentRound,
		Language:     e.state.Language,
	}
	e.openStream(func(ctx context.Context) (io.ReadCloser, error) {
		return e.backend.SubmitArgument(ctx, id, arg)
	})
}

func (e *Engine) toggleAudio(messageID string) {
	if !e.audioOn {
		e.state.notify(NoticeWarn, "audio playback is disabled")
		return
	}
	m, ok := e.state.Transcript.Get(messageID)
	if !ok {
		e.state.notify(NoticeWarn, "no such message")
		return
	}
	req := e.audio.Toggle(m.ID, m.Content, string(m.Speaker))
	if req == nil {
		return
	}
	ctx, lang := e.ctx, e.state.Language
	go func() {
		clip, err := e.backend.GenerateSpeech(ctx, api.SpeechRequest{Text: req.Text, Role: req.Role, Language: lang})
		e.post(speechDone{req: req, clip: clip, err: err})
	}()
}

func (e *Engine) setLanguage(language string) {
	if !SupportedLanguage(language) {
		e.state.notify(NoticeWarn, fmt.Sprintf("unsupported language %q", language))
		return
	}
	e.state.Language = language
}

func (e *Engine) shutdown() {
	e.streams.Close()
	e.audio.Stop()
}

func (e *Engine) publish() {
	if e.onChange != nil {
		e.onChange(e.snapshot())
	}
}
