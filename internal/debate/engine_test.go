package debate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"aidebate/internal/api"
	"aidebate/internal/audio"
	"aidebate/internal/db"
	"aidebate/internal/events"
	"aidebate/internal/session"
	"aidebate/internal/transcript"
)

type fakeBackend struct {
	mu       sync.Mutex
	inits    []api.InitRequest
	calls    []string
	args     []api.ArgumentRequest
	complete api.CompleteResult
	skip     api.ControlResult
	startErr error
	streams  chan *io.PipeWriter

	// pauseGate, when set, holds Pause until it is closed.
	pauseGate chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{streams: make(chan *io.PipeWriter, 8)}
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *fakeBackend) called(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *fakeBackend) InitSession(_ context.Context, req api.InitRequest) (api.InitResult, error) {
	b.mu.Lock()
	b.inits = append(b.inits, req)
	b.mu.Unlock()
	b.record("init")
	return api.InitResult{SessionID: "42", Status: "INITIALIZED"}, nil
}

func (b *fakeBackend) Start(context.Context, string) (api.ControlResult, error) {
	b.record("start")
	return api.ControlResult{Status: "IN_PROGRESS"}, b.startErr
}

func (b *fakeBackend) Pause(ctx context.Context, _ string) (api.ControlResult, error) {
	if b.pauseGate != nil {
		select {
		case <-b.pauseGate:
		case <-ctx.Done():
			return api.ControlResult{}, ctx.Err()
		}
	}
	b.record("pause")
	return api.ControlResult{Status: "PAUSED", CurrentPosition: "round 2"}, nil
}

func (b *fakeBackend) Resume(context.Context, string) (api.ControlResult, error) {
	b.record("resume")
	return api.ControlResult{Status: "IN_PROGRESS"}, nil
}

func (b *fakeBackend) SkipToEnd(context.Context, string) (api.ControlResult, error) {
	b.record("skip")
	return b.skip, nil
}

func (b *fakeBackend) Complete(context.Context, string) (api.CompleteResult, error) {
	b.record("complete")
	return b.complete, nil
}

func (b *fakeBackend) GenerateSpeech(_ context.Context, req api.SpeechRequest) ([]byte, error) {
	b.record("speech")
	return []byte("clip:" + req.Text), nil
}

func (b *fakeBackend) pipe() io.ReadCloser {
	r, w := io.Pipe()
	b.streams <- w
	return r
}

func (b *fakeBackend) StreamDebate(context.Context, string, string) (io.ReadCloser, error) {
	b.record("stream")
	return b.pipe(), nil
}

func (b *fakeBackend) SubmitArgument(_ context.Context, _ string, arg api.ArgumentRequest) (io.ReadCloser, error) {
	b.mu.Lock()
	b.args = append(b.args, arg)
	b.mu.Unlock()
	b.record("argument")
	return b.pipe(), nil
}

func (b *fakeBackend) nextStream(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-b.streams:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("no stream opened")
		return nil
	}
}

type fakeArchiver struct {
	mu   sync.Mutex
	recs []db.Record
}

func (a *fakeArchiver) SaveDebate(rec db.Record) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return fmt.Sprintf("debate-%d", len(a.recs)), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Emit(eventType string, _ map[string]string) {
	n.mu.Lock()
	n.events = append(n.events, eventType)
	n.mu.Unlock()
}

func (n *fakeNotifier) DebateCompleted(_, _, _ string, _, _ float64) {
	n.Emit("debate_completed", nil)
}

func (n *fakeNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type harness struct {
	engine   *Engine
	backend  *fakeBackend
	archiver *fakeArchiver
	notifier *fakeNotifier
}

func startEngine(t *testing.T, mode Mode, player audio.Player) *harness {
	t.Helper()
	return startEngineWith(t, mode, player, nil)
}

// startEngineWith lets a test adjust the engine config before it starts.
func startEngineWith(t *testing.T, mode Mode, player audio.Player, adjust func(*Config)) *harness {
	t.Helper()
	h := &harness{backend: newFakeBackend(), archiver: &fakeArchiver{}, notifier: &fakeNotifier{}}
	cfg := Config{
		Mode:          mode,
		Language:      "en",
		MaxRounds:     2,
		RoundDuration: time.Minute,
		UserID:        "1",
		Defaults: session.Config{
			UserSide:    "AFFIRMATIVE",
			Affirmative: session.Persona{Personality: "Analytical", ExpertiseLevel: "Expert"},
			Negative:    session.Persona{Personality: "Passionate", ExpertiseLevel: "Novice"},
		},
		TickInterval: 10 * time.Millisecond,
	}
	if adjust != nil {
		adjust(&cfg)
	}
	h.engine = NewEngine(cfg, Options{
		Backend:  h.backend,
		Player:   player,
		Archiver: h.archiver,
		Notifier: h.notifier,
		Logger:   quiet(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go h.engine.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.engine.Done()
	})
	return h
}

func (h *harness) waitFor(t *testing.T, what string, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := h.engine.Snapshot(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if ok(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot: status=%s pending=%q notices=%+v",
				what, snap.Status, snap.Pending, snap.Notices)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) begin(t *testing.T) {
	t.Helper()
	h.engine.Initialize("7", "Remote work")
	h.waitFor(t, "initialized", func(s Snapshot) bool { return s.Status == session.Initialized })
	h.engine.Start()
	h.waitFor(t, "in progress", func(s Snapshot) bool { return s.Status == session.InProgress })
}

func send(t *testing.T, w *io.PipeWriter, event, data string) {
	t.Helper()
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func TestEngine_AutomatedDebateToCompletion(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.begin(t)

	w := h.backend.nextStream(t)
	send(t, w, "round_start", `{"round":1}`)
	send(t, w, "ai_argument", `{"chunk":"Hello","side":"AFFIRMATIVE"}`)
	send(t, w, "ai_argument", `{"chunk":" world","side":"AFFIRMATIVE"}`)
	send(t, w, "ai_argument", `{"complete":true,"side":"AFFIRMATIVE"}`)
	send(t, w, "cumulative_scores_update", `{"affirmativeTotal":8,"negativeTotal":6}`)
	send(t, w, "winner_announcement", `{"winner":"AFFIRMATIVE"}`)
	send(t, w, "stream_complete", `{}`)

	snap := h.waitFor(t, "completion", func(s Snapshot) bool { return s.Status == session.Completed })
	if len(snap.Messages) != 2 || snap.Messages[1].Content != "Hello world" {
		t.Fatalf("messages = %+v", snap.Messages)
	}
	if snap.SideA != 8 || snap.SideB != 6 {
		t.Errorf("scores = %v, %v", snap.SideA, snap.SideB)
	}
	if snap.Result == nil || snap.Result.Winner != "AFFIRMATIVE" {
		t.Errorf("result = %+v", snap.Result)
	}
	if snap.TimerRunning || snap.Streaming {
		t.Errorf("timer running = %v, streaming = %v", snap.TimerRunning, snap.Streaming)
	}

	snap = h.waitFor(t, "archive", func(s Snapshot) bool { return s.ArchiveID != "" })
	if snap.ArchiveID != "debate-1" {
		t.Errorf("archive id = %q", snap.ArchiveID)
	}
	rec := h.archiver.recs[0]
	if rec.Debate.SessionID != "42" || rec.Debate.Winner != "AFFIRMATIVE" || len(rec.Messages) != 2 {
		t.Errorf("archived = %+v", rec.Debate)
	}

	got := h.notifier.list()
	want := []string{"debate_initialized", "debate_started", "debate_completed"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}

	h.backend.mu.Lock()
	req := h.backend.inits[0]
	h.backend.mu.Unlock()
	if req.TopicID != events.ID("7") || req.AIConfigs["negative"].ExpertiseLevel != "Novice" || req.AIConfig != nil {
		t.Errorf("init request = %+v", req)
	}
}

func TestEngine_PauseDropsOldConnection(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.begin(t)

	w := h.backend.nextStream(t)
	send(t, w, "ai_argument", `{"chunk":"partial","side":"NEGATIVE"}`)
	h.waitFor(t, "preview", func(s Snapshot) bool { return s.Preview.Content == "partial" })

	h.engine.Pause()
	snap := h.waitFor(t, "paused", func(s Snapshot) bool { return s.Status == session.Paused })
	if snap.Preview.Active {
		t.Error("preview survived pause")
	}
	if snap.Streaming {
		t.Error("stream still open after pause")
	}

	// The old reader is gone; writes either fail or are never applied.
	fmt.Fprintf(w, "event: ai_argument\ndata: {\"chunk\":\"late\",\"complete\":true,\"side\":\"NEGATIVE\"}\n\n")
	w.Close()

	h.engine.Resume()
	h.waitFor(t, "resumed", func(s Snapshot) bool { return s.Status == session.InProgress })
	w2 := h.backend.nextStream(t)
	send(t, w2, "ai_argument", `{"chunk":"fresh","complete":true,"side":"NEGATIVE"}`)

	snap = h.waitFor(t, "new message", func(s Snapshot) bool { return len(s.Messages) == 1 })
	if snap.Messages[0].Content != "fresh" {
		t.Errorf("content = %q", snap.Messages[0].Content)
	}
	if h.backend.called("stream") != 2 {
		t.Errorf("streams opened = %d", h.backend.called("stream"))
	}
}

func TestEngine_SkipUsesFinalScores(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.backend.skip = api.ControlResult{
		Status:      "COMPLETED",
		Winner:      "NEGATIVE",
		FinalScores: map[string]float64{"affirmativeScore": 40, "negativeScore": 44},
	}
	h.begin(t)
	h.backend.nextStream(t)

	h.engine.Skip()
	snap := h.waitFor(t, "completed", func(s Snapshot) bool { return s.Status == session.Completed })
	if snap.Result == nil || snap.Result.Winner != "NEGATIVE" || *snap.Result.SideB != 44 {
		t.Fatalf("result = %+v", snap.Result)
	}
	if snap.CanSkip || snap.CanPause {
		t.Error("controls should be disabled after completion")
	}
}

func TestEngine_RejectsIllegalAction(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.engine.Start()
	snap := h.waitFor(t, "notice", func(s Snapshot) bool { return len(s.Notices) > 0 })
	if snap.Status != session.NotStarted {
		t.Errorf("status = %s", snap.Status)
	}
	if h.backend.called("start") != 0 {
		t.Error("start reached the server")
	}
}

func TestEngine_StartFailureLeavesSessionInitialized(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.backend.startErr = errors.New("boom")
	h.engine.Initialize("7", "Remote work")
	h.waitFor(t, "initialized", func(s Snapshot) bool { return s.Status == session.Initialized })

	h.engine.Start()
	snap := h.waitFor(t, "error notice", func(s Snapshot) bool {
		n, ok := s.LastNotice()
		return ok && n.Level == NoticeError
	})
	if snap.Status != session.Initialized || snap.Pending != "" {
		t.Errorf("status = %s, pending = %q", snap.Status, snap.Pending)
	}
}

func TestEngine_InteractiveRounds(t *testing.T) {
	h := startEngine(t, Interactive, nil)
	h.backend.complete = api.CompleteResult{Winner: "AFFIRMATIVE", FinalScoreUser: ptr(30), FinalScoreAI: ptr(25)}
	h.begin(t)

	snap := h.waitFor(t, "input", func(s Snapshot) bool { return s.InputEnabled })
	if h.backend.called("stream") != 0 {
		t.Error("interactive start opened a debate stream")
	}

	for round := 1; round <= 2; round++ {
		h.engine.Submit(fmt.Sprintf("argument %d", round))
		w := h.backend.nextStream(t)
		send(t, w, "user_argument", fmt.Sprintf(`{"content":"argument %d","complete":true,"argumentId":"u%d"}`, round, round))
		send(t, w, "ai_argument", fmt.Sprintf(`{"chunk":"reply %d","complete":true,"argumentId":"a%d"}`, round, round))
		send(t, w, "stream_complete", `{}`)
		w.Close()
		if round == 1 {
			snap = h.waitFor(t, "round 2", func(s Snapshot) bool { return s.Round == 2 && s.InputEnabled })
		}
	}

	snap = h.waitFor(t, "completed", func(s Snapshot) bool { return s.Status == session.Completed })
	if len(snap.Messages) != 4 {
		t.Fatalf("messages = %+v", snap.Messages)
	}
	if snap.Messages[1].Speaker != transcript.Negative {
		t.Errorf("ai speaker = %s", snap.Messages[1].Speaker)
	}
	if snap.Result == nil || *snap.Result.SideA != 30 || *snap.Result.SideB != 25 {
		t.Errorf("result = %+v", snap.Result)
	}

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	if len(h.backend.args) != 2 || h.backend.args[1].RoundNumber != 2 {
		t.Errorf("arguments = %+v", h.backend.args)
	}
	if req := h.backend.inits[0]; req.UserSide != "AFFIRMATIVE" || req.AIConfig == nil || req.AIConfig.Personality != "Passionate" {
		t.Errorf("init request = %+v", req)
	}
}

func TestEngine_InteractiveNegativeUserScores(t *testing.T) {
	h := startEngineWith(t, Interactive, nil, func(c *Config) {
		c.MaxRounds = 1
		c.Defaults.UserSide = "NEGATIVE"
	})
	h.backend.complete = api.CompleteResult{Winner: "NEGATIVE", FinalScoreUser: ptr(30), FinalScoreAI: ptr(25)}
	h.begin(t)
	h.waitFor(t, "input", func(s Snapshot) bool { return s.InputEnabled })

	h.engine.Submit("my case")
	w := h.backend.nextStream(t)
	send(t, w, "scores_update", `{"userTotal":8,"aiTotal":5}`)
	snap := h.waitFor(t, "scores", func(s Snapshot) bool { return s.SideB == 8 })
	if snap.SideA != 5 || snap.Leader() != string(transcript.Negative) {
		t.Errorf("scores = %v, %v; leader = %q", snap.SideA, snap.SideB, snap.Leader())
	}
	send(t, w, "stream_complete", `{}`)
	w.Close()

	snap = h.waitFor(t, "completed", func(s Snapshot) bool { return s.Status == session.Completed })
	if snap.Result == nil || *snap.Result.SideA != 25 || *snap.Result.SideB != 30 {
		t.Errorf("result = %+v", snap.Result)
	}

	h.waitFor(t, "archive", func(s Snapshot) bool { return s.ArchiveID != "" })
	h.archiver.mu.Lock()
	rec := h.archiver.recs[0]
	h.archiver.mu.Unlock()
	if rec.Debate.SideA != 25 || rec.Debate.SideB != 30 {
		t.Errorf("archived sides = %v, %v", rec.Debate.SideA, rec.Debate.SideB)
	}
}

func TestEngine_CompletionWaitsForPendingControl(t *testing.T) {
	h := startEngineWith(t, Interactive, nil, func(c *Config) { c.MaxRounds = 1 })
	h.begin(t)
	h.waitFor(t, "input", func(s Snapshot) bool { return s.InputEnabled })

	h.engine.Submit("closing argument")
	w := h.backend.nextStream(t)

	gate := make(chan struct{})
	h.backend.pauseGate = gate
	h.engine.Pause()
	h.waitFor(t, "pause pending", func(s Snapshot) bool { return s.Pending == session.ActionPause })

	send(t, w, "stream_complete", `{}`)
	w.Close()
	snap := h.waitFor(t, "rounds exhausted", func(s Snapshot) bool { return s.Round == 2 })
	if snap.InputEnabled {
		t.Error("input enabled after the last round")
	}
	if n := h.backend.called("complete"); n != 0 {
		t.Fatalf("complete called %d times while pause was in flight", n)
	}

	close(gate)
	snap = h.waitFor(t, "completed", func(s Snapshot) bool { return s.Status == session.Completed })
	if snap.InputEnabled || snap.Pending != "" {
		t.Errorf("input = %v, pending = %q", snap.InputEnabled, snap.Pending)
	}
	if n := h.backend.called("complete"); n != 1 {
		t.Errorf("complete called %d times, want 1", n)
	}
}

func TestEngine_SubmitRequiresInteractive(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.begin(t)
	h.engine.Submit("hello")
	h.waitFor(t, "notice", func(s Snapshot) bool {
		n, ok := s.LastNotice()
		return ok && n.Level == NoticeWarn
	})
	if h.backend.called("argument") != 0 {
		t.Error("argument submitted in automated mode")
	}
}

func TestEngine_StreamFailureReported(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.begin(t)
	w := h.backend.nextStream(t)
	w.CloseWithError(errors.New("connection reset"))

	snap := h.waitFor(t, "failure notice", func(s Snapshot) bool {
		n, ok := s.LastNotice()
		return ok && n.Level == NoticeError
	})
	if snap.Streaming {
		t.Error("stream should be closed")
	}
	if snap.Status != session.InProgress {
		t.Errorf("status = %s", snap.Status)
	}
}

func TestEngine_ResetDropsEverything(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.begin(t)
	w := h.backend.nextStream(t)
	send(t, w, "round_start", `{"round":1}`)
	h.waitFor(t, "message", func(s Snapshot) bool { return len(s.Messages) == 1 })

	h.engine.Reset()
	snap := h.waitFor(t, "reset", func(s Snapshot) bool { return s.Status == session.NotStarted })
	if len(snap.Messages) != 0 || snap.SessionID != "" || snap.Streaming {
		t.Errorf("snapshot after reset = %+v", snap)
	}
	if !snap.CanInitialize {
		t.Error("should be able to initialize again")
	}
}

type endlessPlayback struct{ closed chan struct{} }

func (p *endlessPlayback) Play() error             { return nil }
func (p *endlessPlayback) Pause() error            { return nil }
func (p *endlessPlayback) Resume() error           { return nil }
func (p *endlessPlayback) Position() time.Duration { return 0 }
func (p *endlessPlayback) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return nil
}

type recordingPlayer struct {
	mu     sync.Mutex
	clips  []string
	onEnds []func(error)
	pbs    []*endlessPlayback
}

func (p *recordingPlayer) Open(clip []byte, onEnd func(error)) (audio.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pb := &endlessPlayback{closed: make(chan struct{})}
	p.clips = append(p.clips, string(clip))
	p.onEnds = append(p.onEnds, onEnd)
	p.pbs = append(p.pbs, pb)
	return pb, nil
}

func TestEngine_AudioToggle(t *testing.T) {
	player := &recordingPlayer{}
	h := startEngine(t, Automated, player)
	h.begin(t)
	w := h.backend.nextStream(t)
	send(t, w, "round_start", `{"round":1}`)
	send(t, w, "moderator_announcement", `{"chunk":"Welcome","complete":true}`)
	snap := h.waitFor(t, "messages", func(s Snapshot) bool { return len(s.Messages) == 2 })
	first, second := snap.Messages[0].ID, snap.Messages[1].ID

	h.engine.ToggleAudio(first)
	h.waitFor(t, "playing", func(s Snapshot) bool { return s.Audio[first] == audio.Playing })

	h.engine.ToggleAudio(second)
	snap = h.waitFor(t, "second playing", func(s Snapshot) bool { return s.Audio[second] == audio.Playing })
	if snap.Audio[first] == audio.Playing {
		t.Error("two messages playing at once")
	}
	player.mu.Lock()
	select {
	case <-player.pbs[0].closed:
	default:
		t.Error("first playback was not released")
	}
	onEnd := player.onEnds[1]
	player.mu.Unlock()

	onEnd(nil)
	snap = h.waitFor(t, "finished", func(s Snapshot) bool { return s.Playback.CurrentMessageID == "" })
	if snap.Audio[second] == audio.Playing {
		t.Error("second message still playing")
	}
}

func TestEngine_AudioDisabledWithoutPlayer(t *testing.T) {
	h := startEngine(t, Automated, nil)
	h.begin(t)
	h.engine.ToggleAudio("anything")
	h.waitFor(t, "notice", func(s Snapshot) bool { return len(s.Notices) > 0 })
	if h.backend.called("speech") != 0 {
		t.Error("speech requested with audio disabled")
	}
}

func ptr(v float64) *float64 { return &v }
