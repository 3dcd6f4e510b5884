// This file implements a PostgreSQL-backed session store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/lib/pq"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore keeps sessions in PostgreSQL. Updates are a single UPDATE ... RETURNING
// so concurrent patches to one row serialize on the row lock.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

func scanPostgresSession(row rowScanner) (*models.InterviewSession, error) {
	var s models.InterviewSession
	var phone, experience, position, location sql.NullString
	var responses []byte
	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &phone, &experience, &position, &location,
		pq.Array(&s.TechStack), &responses, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Phone = stringFromNull(phone)
	s.Experience = stringFromNull(experience)
	s.Position = stringFromNull(position)
	s.Location = stringFromNull(location)
	if s.TechStack == nil {
		s.TechStack = []string{}
	}
	if s.Responses, err = unmarshalResponses(responses); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, n models.NewSession) (*models.InterviewSession, error) {
	n.Normalize()
	responses, err := marshalResponses(n.Responses)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	query := `INSERT INTO interview_sessions
		(name, email, phone, experience, position, location, tech_stack, responses, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $10)
		RETURNING ` + sessionColumns
	row := s.db.QueryRowContext(ctx, query,
		n.Name, n.Email, nullableString(n.Phone), nullableString(n.Experience),
		nullableString(n.Position), nullableString(n.Location),
		pq.Array(n.TechStack), responses, string(n.Status), now)
	sess, err := scanPostgresSession(row)
	if err != nil {
		slog.Error("PostgresStore.CreateSession: insert failed", "error", err)
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	slog.Debug("PostgresStore.CreateSession: session created", "sessionID", sess.ID)
	return sess, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id int64) (*models.InterviewSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`, id)
	sess, err := scanPostgresSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		slog.Error("PostgresStore.GetSession: query failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return sess, nil
}

func (s *PostgresStore) UpdateSession(ctx context.Context, id int64, p models.SessionPatch) (*models.InterviewSession, error) {
	var techStack interface{}
	if p.TechStack != nil {
		techStack = pq.Array(append([]string{}, (*p.TechStack)...))
	}
	var responses interface{}
	if p.Responses != nil {
		raw, err := marshalResponses(*p.Responses)
		if err != nil {
			return nil, err
		}
		responses = raw
	}
	var status interface{}
	if p.Status != nil {
		status = string(*p.Status)
	}

	// COALESCE keeps columns whose patch field is absent; completed never regresses.
	query := `UPDATE interview_sessions SET
		name = COALESCE($2, name),
		email = COALESCE($3, email),
		phone = COALESCE($4, phone),
		experience = COALESCE($5, experience),
		position = COALESCE($6, position),
		location = COALESCE($7, location),
		tech_stack = COALESCE($8::text[], tech_stack),
		responses = COALESCE($9::jsonb, responses),
		status = CASE WHEN status = 'completed' THEN status ELSE COALESCE($10, status) END,
		updated_at = $11
		WHERE id = $1
		RETURNING ` + sessionColumns
	row := s.db.QueryRowContext(ctx, query, id,
		nullableString(p.Name), nullableString(p.Email), nullableString(p.Phone),
		nullableString(p.Experience), nullableString(p.Position), nullableString(p.Location),
		techStack, responses, status, time.Now().UTC())
	sess, err := scanPostgresSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		slog.Error("PostgresStore.UpdateSession: update failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to update session %d: %w", id, err)
	}
	slog.Debug("PostgresStore.UpdateSession: session updated", "sessionID", id, "status", sess.Status)
	return sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.InterviewSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM interview_sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		slog.Error("PostgresStore.ListSessions: query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.InterviewSession{}
	for rows.Next() {
		sess, err := scanPostgresSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("PostgresStore.ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
