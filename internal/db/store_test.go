// internal/db/store_test.go
package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"aidebate/internal/scoring"
	"aidebate/internal/transcript"
)

func sampleRecord(sessionID string) Record {
	now := time.Now()
	return Record{
		Debate: Debate{
			SessionID:  sessionID,
			Topic:      "AI should be regulated",
			Mode:       "automated",
			Language:   "en",
			Status:     "COMPLETED",
			Winner:     "AFFIRMATIVE",
			SideA:      42.5,
			SideB:      39,
			Assessment: "Close debate",
		},
		Messages: []transcript.Message{
			{ID: "m1", Speaker: transcript.Moderator, Content: "Welcome", Round: 0, Type: transcript.Announcement, Timestamp: now},
			{ID: "ai-7", Speaker: transcript.Negative, Role: "NEGATIVE", Content: "Hello world", Round: 2, Type: transcript.Argument, Timestamp: now},
		},
		Rounds: []scoring.RoundScore{{Round: 1, SideA: 8, SideB: 7}, {Round: 2, SideA: 9, SideB: 9.5}},
	}
}

func TestStore(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := Open("")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	id, err := store.SaveDebate(sampleRecord("17"))
	if err != nil {
		t.Fatalf("SaveDebate() failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated archive id")
	}

	debate, err := store.GetDebate(id)
	if err != nil {
		t.Fatalf("GetDebate() failed: %v", err)
	}
	if debate.Topic != "AI should be regulated" || debate.Winner != "AFFIRMATIVE" || debate.SideA != 42.5 {
		t.Errorf("unexpected debate: %+v", debate)
	}

	messages, err := store.GetMessages(id)
	if err != nil {
		t.Fatalf("GetMessages() failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[1].MessageID != "ai-7" || messages[1].Round != 2 || messages[1].Speaker != "NEGATIVE" {
		t.Errorf("unexpected message: %+v", messages[1])
	}

	converted := Transcript(messages)
	if converted[1].Speaker != transcript.Negative || converted[1].Type != transcript.Argument {
		t.Errorf("Transcript() = %+v", converted[1])
	}

	rounds, err := store.GetRoundScores(id)
	if err != nil {
		t.Fatalf("GetRoundScores() failed: %v", err)
	}
	if len(rounds) != 2 || rounds[1].SideB != 9.5 {
		t.Errorf("rounds = %+v", rounds)
	}

	debates, err := store.ListDebates()
	if err != nil {
		t.Fatalf("ListDebates() failed: %v", err)
	}
	if len(debates) != 1 {
		t.Errorf("Expected 1 debate, got %d", len(debates))
	}
}

func TestStore_GetDebateByPrefix(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rec := sampleRecord("1")
	rec.Debate.ID = "abc123"
	if _, err := store.SaveDebate(rec); err != nil {
		t.Fatal(err)
	}
	rec.Debate.ID = "abd456"
	if _, err := store.SaveDebate(rec); err != nil {
		t.Fatal(err)
	}

	d, err := store.GetDebate("abc")
	if err != nil || d.ID != "abc123" {
		t.Errorf("GetDebate(abc) = %v, %v", d, err)
	}
	if _, err := store.GetDebate("ab"); err == nil {
		t.Error("ambiguous prefix should fail")
	}
	if _, err := store.GetDebate("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteDebate(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	id, err := store.SaveDebate(sampleRecord("1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteDebate(id); err != nil {
		t.Fatalf("DeleteDebate() failed: %v", err)
	}
	msgs, _ := store.GetMessages(id)
	if len(msgs) != 0 {
		t.Errorf("messages should cascade, got %d", len(msgs))
	}
	if err := store.DeleteDebate(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
