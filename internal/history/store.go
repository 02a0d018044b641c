// Package history persists completed wizard sessions in a local SQLite
// database: the answers given and the outcomes derived. The store exists so
// case workers can review past sessions and explain results after the fact;
// it is not consulted by the engines themselves.
package history

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pmercier/parcours/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// SessionRecord is one completed session as stored.
type SessionRecord struct {
	ID                string
	StartedAt         time.Time
	CompletedAt       time.Time
	QuestionsAnswered int
	Answers           models.AnswerStore
	Conclusions       []models.OutcomeRecord
	Documents         []models.OutcomeRecord
}

// Store manages the SQLite database holding session history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a Store instance and initializes the database.
// dbPath may be ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		// Ensure parent directory exists for file-based databases
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure SQLite for concurrent access. busy_timeout must come first
	// so subsequent operations wait on locks instead of failing.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on
// lock errors, which can occur during concurrent initialization of the same
// database file.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSession records one completed session.
func (s *Store) SaveSession(rec SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}

	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	conclusionsJSON, err := json.Marshal(rec.Conclusions)
	if err != nil {
		return fmt.Errorf("marshal conclusions: %w", err)
	}
	documentsJSON, err := json.Marshal(rec.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, started_at, completed_at, questions_answered, answers, conclusions, documents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt, rec.CompletedAt, rec.QuestionsAnswered,
		string(answersJSON), string(conclusionsJSON), string(documentsJSON))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads one session by id.
func (s *Store) GetSession(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, completed_at, questions_answered, answers, conclusions, documents
		FROM sessions WHERE id = ?`, id)

	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return rec, nil
}

// ListSessions returns the most recently completed sessions, newest first.
// limit <= 0 means no limit.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	query := `
		SELECT id, started_at, completed_at, questions_answered, answers, conclusions, documents
		FROM sessions ORDER BY completed_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Prune deletes sessions completed more than keepDays days ago and returns
// the number of deleted rows. keepDays <= 0 deletes nothing.
func (s *Store) Prune(keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays)
	res, err := s.db.Exec(`DELETE FROM sessions WHERE completed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

// scanner abstracts sql.Row and sql.Rows for scanSession.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*SessionRecord, error) {
	var rec SessionRecord
	var answersJSON, conclusionsJSON, documentsJSON string

	err := row.Scan(&rec.ID, &rec.StartedAt, &rec.CompletedAt, &rec.QuestionsAnswered,
		&answersJSON, &conclusionsJSON, &documentsJSON)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(answersJSON), &rec.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal([]byte(conclusionsJSON), &rec.Conclusions); err != nil {
		return nil, fmt.Errorf("unmarshal conclusions: %w", err)
	}
	if err := json.Unmarshal([]byte(documentsJSON), &rec.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	return &rec, nil
}
