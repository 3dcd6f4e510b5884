// Package store provides storage backends for interview sessions.
//
// Every backend implements SessionStore; the concrete one is picked from the DSN.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists interview sessions.
type SessionStore interface {
	// CreateSession inserts a new session and returns it with its id and timestamps.
	CreateSession(ctx context.Context, n models.NewSession) (*models.InterviewSession, error)
	// GetSession returns ErrSessionNotFound when id is unknown.
	GetSession(ctx context.Context, id int64) (*models.InterviewSession, error)
	// UpdateSession applies the non-nil fields of p atomically and bumps updatedAt.
	UpdateSession(ctx context.Context, id int64, p models.SessionPatch) (*models.InterviewSession, error)
	// ListSessions returns every session, newest created first.
	ListSessions(ctx context.Context) ([]models.InterviewSession, error)
	Close() error
}

// Backend names returned by DetectDSNType.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string // database connection string or file path
}

// Option defines a configuration option for stores.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports which backend a DSN addresses. Anything that is not a
// recognizable PostgreSQL or Redis DSN is treated as a SQLite file path. An empty
// DSN or memory:// selects the in-memory store.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	switch {
	case d == "", d == "memory", strings.HasPrefix(d, "memory://"):
		return DriverMemory
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(d, "redis://"), strings.HasPrefix(d, "rediss://"):
		return DriverRedis
	case strings.Contains(d, "host=") && strings.Contains(d, "dbname="):
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

// Open returns the backend addressed by dsn.
func Open(ctx context.Context, dsn string) (SessionStore, error) {
	driver := DetectDSNType(dsn)
	slog.Debug("store.Open: selecting backend", "driver", driver)
	switch driver {
	case DriverMemory:
		return NewInMemoryStore(), nil
	case DriverPostgres:
		return NewPostgresStore(WithPostgresDSN(dsn))
	case DriverRedis:
		return NewRedisStoreFromURL(ctx, dsn)
	case DriverSQLite:
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// InMemoryStore keeps sessions in a map. Nothing survives a restart.
type InMemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*models.InterviewSession
	now      func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[int64]*models.InterviewSession),
		now:      time.Now,
	}
}

func (s *InMemoryStore) CreateSession(ctx context.Context, n models.NewSession) (*models.InterviewSession, error) {
	n.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now().UTC()
	sess := newSessionRecord(s.nextID, n, now)
	s.sessions[sess.ID] = sess
	slog.Debug("InMemoryStore.CreateSession: session created", "sessionID", sess.ID)
	return cloneSession(sess), nil
}

func (s *InMemoryStore) GetSession(ctx context.Context, id int64) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func (s *InMemoryStore) UpdateSession(ctx context.Context, id int64, p models.SessionPatch) (*models.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	p.Apply(sess, s.now().UTC())
	slog.Debug("InMemoryStore.UpdateSession: session updated", "sessionID", id, "status", sess.Status)
	return cloneSession(sess), nil
}

func (s *InMemoryStore) ListSessions(ctx context.Context) ([]models.InterviewSession, error) {
	s.mu.Lock()
	out := make([]models.InterviewSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *cloneSession(sess))
	}
	s.mu.Unlock()

	sortNewestFirst(out)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

func newSessionRecord(id int64, n models.NewSession, now time.Time) *models.InterviewSession {
	return &models.InterviewSession{
		ID:         id,
		Name:       n.Name,
		Email:      n.Email,
		Phone:      n.Phone,
		Experience: n.Experience,
		Position:   n.Position,
		Location:   n.Location,
		TechStack:  append([]string{}, n.TechStack...),
		Responses:  append([]models.QA{}, n.Responses...),
		Status:     n.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func cloneSession(s *models.InterviewSession) *models.InterviewSession {
	c := *s
	c.TechStack = append([]string{}, s.TechStack...)
	c.Responses = append([]models.QA{}, s.Responses...)
	return &c
}

// sortNewestFirst orders by createdAt descending, id descending on ties.
func sortNewestFirst(sessions []models.InterviewSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
