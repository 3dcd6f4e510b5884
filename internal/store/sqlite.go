// This file implements an SQLite-backed session store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore keeps sessions in a single SQLite file. It holds one connection so
// read-modify-write updates are serialized.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied", "dir", dir)

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, n models.NewSession) (*models.InterviewSession, error) {
	n.Normalize()
	techStack, err := json.Marshal(n.TechStack)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tech stack: %w", err)
	}
	responses, err := marshalResponses(n.Responses)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	query := `INSERT INTO interview_sessions
		(name, email, phone, experience, position, location, tech_stack, responses, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		n.Name, n.Email, nullableString(n.Phone), nullableString(n.Experience),
		nullableString(n.Position), nullableString(n.Location),
		string(techStack), responses, string(n.Status), now, now)
	if err != nil {
		slog.Error("SQLiteStore.CreateSession: insert failed", "error", err)
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}
	slog.Debug("SQLiteStore.CreateSession: session created", "sessionID", id)
	return newSessionRecord(id, n, now), nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*models.InterviewSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = ?`, id)
	sess, err := scanSQLiteSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore.GetSession: query failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return sess, nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, id int64, p models.SessionPatch) (*models.InterviewSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = ?`, id)
	sess, err := scanSQLiteSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", id, err)
	}

	p.Apply(sess, s.now().UTC())

	techStack, err := json.Marshal(sess.TechStack)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tech stack: %w", err)
	}
	responses, err := marshalResponses(sess.Responses)
	if err != nil {
		return nil, err
	}

	query := `UPDATE interview_sessions SET
		name = ?, email = ?, phone = ?, experience = ?, position = ?, location = ?,
		tech_stack = ?, responses = ?, status = ?, updated_at = ?
		WHERE id = ?`
	_, err = tx.ExecContext(ctx, query,
		sess.Name, sess.Email, nullableString(sess.Phone), nullableString(sess.Experience),
		nullableString(sess.Position), nullableString(sess.Location),
		string(techStack), responses, string(sess.Status), sess.UpdatedAt, id)
	if err != nil {
		slog.Error("SQLiteStore.UpdateSession: update failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to update session %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session %d: %w", id, err)
	}
	slog.Debug("SQLiteStore.UpdateSession: session updated", "sessionID", id, "status", sess.Status)
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]models.InterviewSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM interview_sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		slog.Error("SQLiteStore.ListSessions: query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.InterviewSession{}
	for rows.Next() {
		sess, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("SQLiteStore.ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
