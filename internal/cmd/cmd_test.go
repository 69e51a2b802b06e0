package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aidebate/internal/db"
	"aidebate/internal/debate"
	"aidebate/internal/transcript"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configFile = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	configFile = writeConfig(t, "server:\n  base_url: http://debate.test\ndebate:\n  mode: automated\n")
	t.Cleanup(func() {
		configFile, modeFlag, langFlag, topicFlag = "", "", "", ""
		noAudio = false
	})

	if err := rootCmd.ParseFlags([]string{"--mode", "interactive", "--lang", "zh", "--topic", "7", "--no-audio"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(rootCmd)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if cfg.Server.BaseURL != "http://debate.test" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Debate.Mode != "interactive" || cfg.Server.Language != "zh" || cfg.Debate.TopicID != "7" {
		t.Errorf("overrides not applied: mode=%q lang=%q topic=%q", cfg.Debate.Mode, cfg.Server.Language, cfg.Debate.TopicID)
	}
	if cfg.Audio.Enabled {
		t.Error("--no-audio should disable audio")
	}
}

func TestLoadConfig_InvalidMode(t *testing.T) {
	configFile = writeConfig(t, "debate:\n  mode: freestyle\n")
	t.Cleanup(func() { configFile = "" })

	if _, err := loadConfig(historyCmd); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestEngineConfig(t *testing.T) {
	configFile = writeConfig(t, "debate:\n  mode: interactive\n  round_seconds: 90\n  user_side: NEGATIVE\n  negative:\n    personality: Calm\n")
	t.Cleanup(func() { configFile = "" })

	cfg, err := loadConfig(historyCmd)
	if err != nil {
		t.Fatal(err)
	}
	ec := engineConfig(cfg)

	if ec.Mode != debate.Interactive {
		t.Errorf("Mode = %q", ec.Mode)
	}
	if ec.RoundDuration != 90*time.Second {
		t.Errorf("RoundDuration = %v", ec.RoundDuration)
	}
	if ec.MaxRounds != 5 {
		t.Errorf("MaxRounds = %d, want default 5", ec.MaxRounds)
	}
	if ec.Defaults.UserSide != "NEGATIVE" || ec.Defaults.Negative.Personality != "Calm" {
		t.Errorf("Defaults = %+v", ec.Defaults)
	}
}

func TestTopicsCommand(t *testing.T) {
	var gotCategory string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/topics" {
			http.NotFound(w, r)
			return
		}
		gotCategory = r.URL.Query().Get("category")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":1,"title":"AI should be regulated","category":"tech","description":"Governments and AI"}]`)
	}))
	defer srv.Close()

	path := writeConfig(t, "server:\n  base_url: "+srv.URL+"\n")
	out, err := execute(t, "topics", "tech", "--config", path)
	if err != nil {
		t.Fatalf("topics failed: %v", err)
	}

	if gotCategory != "tech" {
		t.Errorf("category = %q", gotCategory)
	}
	for _, want := range []string{"[1] AI should be regulated (tech)", "Governments and AI"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func seedArchive(t *testing.T, path string) string {
	t.Helper()
	store, err := db.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	id, err := store.SaveDebate(db.Record{
		Debate: db.Debate{SessionID: "42", Topic: "Remote work", Mode: "automated", Language: "en", Status: "COMPLETED", Winner: "AFFIRMATIVE", SideA: 24, SideB: 19},
		Messages: []transcript.Message{
			{ID: "m1", Speaker: transcript.Affirmative, Content: "Commutes waste time.", Round: 1, Type: transcript.Argument, Timestamp: time.Now()},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestHistoryAndExportCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "archive.db")
	id := seedArchive(t, dbPath)
	path := writeConfig(t, "archive:\n  enabled: true\n  path: "+dbPath+"\n")

	out, err := execute(t, "history", "--config", path)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, id[:8]) || !strings.Contains(out, "Remote work") || !strings.Contains(out, "winner AFFIRMATIVE") {
		t.Errorf("history output:\n%s", out)
	}

	t.Cleanup(func() { exportStdout = false })
	out, err = execute(t, "export", id[:8], "--stdout", "--config", path)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Remote work") || !strings.Contains(out, "Commutes waste time.") {
		t.Errorf("export output:\n%s", out)
	}

	out, err = execute(t, "history", "delete", id[:8], "--config", path)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "Deleted") {
		t.Errorf("delete output: %s", out)
	}

	out, _ = execute(t, "history", "--config", path)
	if !strings.Contains(out, "No archived debates") {
		t.Errorf("history after delete:\n%s", out)
	}
}

func TestArchiveDisabled(t *testing.T) {
	path := writeConfig(t, "archive:\n  enabled: false\n")
	if _, err := execute(t, "history", "--config", path); err == nil {
		t.Fatal("expected an error with the archive disabled")
	}
}
