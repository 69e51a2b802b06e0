// internal/db/store.go
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"aidebate/internal/scoring"
	"aidebate/internal/transcript"
)

// Store archives finished debates. It is write-once per debate and is never
// used to restore a live session.
type Store struct {
	db *sql.DB
}

type Debate struct {
	ID         string
	SessionID  string
	Topic      string
	Mode       string // automated, interactive
	Language   string
	Status     string
	Winner     string
	SideA      float64
	SideB      float64
	Assessment string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Message struct {
	ID        int64
	DebateID  string
	MessageID string
	Speaker   string
	Role      string
	Content   string
	Round     int
	MsgType   string // ANNOUNCEMENT, ARGUMENT, SUMMARY, EVALUATION
	CreatedAt time.Time
}

// Record is everything archived for one debate.
type Record struct {
	Debate   Debate
	Messages []transcript.Message
	Rounds   []scoring.RoundScore
}

var ErrNotFound = errors.New("debate not found")

// Open opens the archive at path, or at the default data location when
// path is empty.
func Open(path string) (*Store, error) {
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "debates.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func dataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "aidebate"), nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS debates (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'automated',
		language TEXT NOT NULL DEFAULT 'en',
		status TEXT NOT NULL,
		winner TEXT,
		side_a REAL DEFAULT 0,
		side_b REAL DEFAULT 0,
		assessment TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_debates_session ON debates(session_id);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		debate_id TEXT NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
		message_id TEXT NOT NULL,
		speaker TEXT NOT NULL,
		role TEXT,
		content TEXT NOT NULL,
		round INTEGER NOT NULL DEFAULT 0,
		msg_type TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_debate ON messages(debate_id);

	CREATE TABLE IF NOT EXISTS round_scores (
		debate_id TEXT NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		round INTEGER NOT NULL,
		side_a REAL NOT NULL,
		side_b REAL NOT NULL,
		PRIMARY KEY (debate_id, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDebate archives a finished debate and returns its archive ID.
func (s *Store) SaveDebate(rec Record) (string, error) {
	d := rec.Debate
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO debates (id, session_id, topic, mode, language, status, winner, side_a, side_b, assessment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.Topic, d.Mode, d.Language, d.Status, d.Winner, d.SideA, d.SideB, d.Assessment,
	); err != nil {
		return "", fmt.Errorf("insert debate: %w", err)
	}

	for _, m := range rec.Messages {
		if _, err := tx.Exec(
			`INSERT INTO messages (debate_id, message_id, speaker, role, content, round, msg_type, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, m.ID, string(m.Speaker), m.Role, m.Content, m.Round, string(m.Type), m.Timestamp,
		); err != nil {
			return "", fmt.Errorf("insert message: %w", err)
		}
	}

	for i, r := range rec.Rounds {
		if _, err := tx.Exec(
			`INSERT INTO round_scores (debate_id, seq, round, side_a, side_b) VALUES (?, ?, ?, ?, ?)`,
			d.ID, i, r.Round, r.SideA, r.SideB,
		); err != nil {
			return "", fmt.Errorf("insert round score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return d.ID, nil
}

const debateColumns = `id, session_id, topic, mode, language, status, winner, side_a, side_b, assessment, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDebate(row scanner) (Debate, error) {
	var d Debate
	var winner, assessment sql.NullString
	err := row.Scan(&d.ID, &d.SessionID, &d.Topic, &d.Mode, &d.Language, &d.Status,
		&winner, &d.SideA, &d.SideB, &assessment, &d.CreatedAt, &d.UpdatedAt)
	d.Winner = winner.String
	d.Assessment = assessment.String
	return d, err
}

// GetDebate retrieves a debate by archive ID or unique ID prefix.
func (s *Store) GetDebate(id string) (*Debate, error) {
	rows, err := s.db.Query(
		`SELECT `+debateColumns+` FROM debates WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		id, id+"%", id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []Debate
	for rows.Next() {
		d, err := scanDebate(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("ambiguous debate id prefix %q", id)
	}
}

// ListDebates returns all debates, newest first.
func (s *Store) ListDebates() ([]Debate, error) {
	rows, err := s.db.Query(`SELECT ` + debateColumns + ` FROM debates ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debates []Debate
	for rows.Next() {
		d, err := scanDebate(rows)
		if err != nil {
			return nil, err
		}
		debates = append(debates, d)
	}
	return debates, rows.Err()
}

// GetMessages retrieves the archived transcript of a debate in order.
func (s *Store) GetMessages(debateID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, debate_id, message_id, speaker, role, content, round, msg_type, created_at
		 FROM messages WHERE debate_id = ? ORDER BY id`,
		debateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var role sql.NullString
		if err := rows.Scan(&m.ID, &m.DebateID, &m.MessageID, &m.Speaker, &role, &m.Content, &m.Round, &m.MsgType, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = role.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetRoundScores returns the per-round log in the order it was recorded.
func (s *Store) GetRoundScores(debateID string) ([]scoring.RoundScore, error) {
	rows, err := s.db.Query(
		`SELECT round, side_a, side_b FROM round_scores WHERE debate_id = ? ORDER BY seq`,
		debateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scoring.RoundScore
	for rows.Next() {
		var r scoring.RoundScore
		if err := rows.Scan(&r.Round, &r.SideA, &r.SideB); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteDebate removes a debate and everything archived with it.
func (s *Store) DeleteDebate(id string) error {
	res, err := s.db.Exec(`DELETE FROM debates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Transcript converts archived rows back into transcript messages.
func Transcript(rows []Message) []transcript.Message {
	out := make([]transcript.Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, transcript.Message{
			ID:        m.MessageID,
			Speaker:   transcript.Speaker(m.Speaker),
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
			Round:     m.Round,
			Type:      transcript.MessageType(m.MsgType),
		})
	}
	return out
}
