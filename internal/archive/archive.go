// Package archive keeps an audit record of finished sessions in SQLite.
// Nothing reads it back to run a session; it exists for `sixhat hoard`.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dyluth/sixhat/internal/agent"
	"github.com/dyluth/sixhat/internal/orchestrator"
	"github.com/dyluth/sixhat/pkg/blackboard"

	_ "modernc.org/sqlite"
)

// Session is one archived session row.
type Session struct {
	ID          string                     `json:"id"`
	Requirement string                     `json:"requirement"`
	StopReason  string                     `json:"stop_reason"`
	Rounds      int                        `json:"rounds"`
	Succeeded   bool                       `json:"succeeded"`
	Failure     string                     `json:"failure,omitempty"`
	ReportID    string                     `json:"report_id,omitempty"`
	Score       agent.Score                `json:"score"`
	Degraded    []orchestrator.Degradation `json:"degraded"`
	StartedAt   time.Time                  `json:"started_at"`
	FinishedAt  time.Time                  `json:"finished_at"`
}

// Archive is a SQLite-backed session archive.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive at path, creating its directory.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) migrate() error {
	if _, err := a.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	var tables int
	err := a.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		if _, err := a.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := a.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := a.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveSession records a finished session and its full blackboard in one
// transaction. failure is the session error, if any.
func (a *Archive) SaveSession(ctx context.Context, res *orchestrator.Result, failure error) error {
	if res == nil || res.SessionID == "" {
		return errors.New("session result is required")
	}

	score, err := json.Marshal(res.Score)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	degraded := res.Degraded
	if degraded == nil {
		degraded = []orchestrator.Degradation{}
	}
	degradedJSON, err := json.Marshal(degraded)
	if err != nil {
		return fmt.Errorf("encode degradations: %w", err)
	}
	var reportID, failureText string
	if res.Report != nil {
		reportID = res.Report.ID
	}
	if failure != nil {
		failureText = failure.Error()
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions(id, requirement, stop_reason, rounds, succeeded, failure, report_id, score, degraded, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.SessionID, res.Requirement, string(res.StopReason), res.Rounds, res.Succeeded(),
		failureText, reportID, string(score), string(degradedJSON),
		res.StartedAt.UTC().Format(time.RFC3339Nano), res.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries(id, session_id, section, iteration, content, producer_role, status, reason, created_at_ms, seq)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range res.Entries {
		_, err := stmt.ExecContext(ctx, e.ID, res.SessionID, string(e.Section), e.Iteration, e.Content,
			e.ProducerRole, string(e.Status), e.Reason, e.CreatedAtMs, i)
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// ListSessions returns every archived session, oldest first.
func (a *Archive) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, requirement, stop_reason, rounds, succeeded, failure, report_id, score, degraded, started_at, finished_at
		 FROM sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session by full ID.
func (a *Archive) GetSession(ctx context.Context, id string) (*Session, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT id, requirement, stop_reason, rounds, succeeded, failure, report_id, score, degraded, started_at, finished_at
		 FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ShortID: id}
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var stop, score, degraded, started, finished string
	err := row.Scan(&s.ID, &s.Requirement, &stop, &s.Rounds, &s.Succeeded, &s.Failure, &s.ReportID,
		&score, &degraded, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.StopReason = stop
	if score != "" {
		if err := json.Unmarshal([]byte(score), &s.Score); err != nil {
			return nil, fmt.Errorf("decode score for %s: %w", s.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(degraded), &s.Degraded); err != nil {
		return nil, fmt.Errorf("decode degradations for %s: %w", s.ID, err)
	}
	if s.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at for %s: %w", s.ID, err)
	}
	if s.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at for %s: %w", s.ID, err)
	}
	return &s, nil
}

// SessionEntries returns the archived blackboard of a session in the order
// it was captured.
func (a *Archive) SessionEntries(ctx context.Context, sessionID string) ([]*blackboard.Entry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, session_id, section, iteration, content, producer_role, status, reason, created_at_ms
		 FROM entries WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []*blackboard.Entry
	for rows.Next() {
		var e blackboard.Entry
		var section, status string
		if err := rows.Scan(&e.ID, &e.SessionID, &section, &e.Iteration, &e.Content, &e.ProducerRole,
			&status, &e.Reason, &e.CreatedAtMs); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Section = blackboard.Section(section)
		e.Status = blackboard.Status(status)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
