// This file implements a Redis-backed session store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

const (
	// DefaultRedisPrefix namespaces every key the store writes.
	DefaultRedisPrefix = "talentscout:session:"
	// maxWatchAttempts bounds optimistic transaction restarts for one patch.
	maxWatchAttempts = 10
)

// RedisStore keeps each session as a JSON value, allocates ids with INCR and indexes
// sessions in a sorted set scored by creation time. Patches run in a WATCH
// transaction that is restarted when another writer touched the same session.
type RedisStore struct {
	client *backend.Client
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key prefix for sessions.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis store for the given server.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, opts...)
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisStoreFromURL parses a redis:// URL and verifies the server is reachable.
func NewRedisStoreFromURL(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	s := NewRedisStoreFromClient(backend.NewClient(o), opts...)
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.client.Close()
		slog.Error("RedisStore.NewRedisStoreFromURL: ping failed", "error", err)
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return s, nil
}

func (s *RedisStore) key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10)
}

func (s *RedisStore) seqKey() string {
	return s.prefix + "seq"
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) CreateSession(ctx context.Context, n models.NewSession) (*models.InterviewSession, error) {
	n.Normalize()
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		slog.Error("RedisStore.CreateSession: id allocation failed", "error", err)
		return nil, fmt.Errorf("failed to allocate session id: %w", err)
	}

	sess := newSessionRecord(id, n, s.now().UTC())
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(id), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(sess.CreatedAt.UnixMicro()),
		Member: strconv.FormatInt(id, 10),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("RedisStore.CreateSession: save failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	slog.Debug("RedisStore.CreateSession: session created", "sessionID", id)
	return sess, nil
}

func (s *RedisStore) GetSession(ctx context.Context, id int64) (*models.InterviewSession, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return decodeRedisSession(val)
}

func (s *RedisStore) UpdateSession(ctx context.Context, id int64, p models.SessionPatch) (*models.InterviewSession, error) {
	key := s.key(id)
	var updated *models.InterviewSession

	txf := func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return ErrSessionNotFound
			}
			return err
		}
		sess, err := decodeRedisSession(val)
		if err != nil {
			return err
		}
		p.Apply(sess, s.now().UTC())
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = sess
		return nil
	}

	var err error
	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, backend.TxFailedErr) {
			break
		}
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return nil, ErrSessionNotFound
	case errors.Is(err, backend.TxFailedErr):
		slog.Warn("RedisStore.UpdateSession: gave up after concurrent writes", "sessionID", id, "attempts", maxWatchAttempts)
		return nil, fmt.Errorf("session %d kept changing during update: %w", id, err)
	case err != nil:
		slog.Error("RedisStore.UpdateSession: update failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to update session %d: %w", id, err)
	}
	slog.Debug("RedisStore.UpdateSession: session updated", "sessionID", id, "status", updated.Status)
	return updated, nil
}

func (s *RedisStore) ListSessions(ctx context.Context) ([]models.InterviewSession, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := []models.InterviewSession{}
	if len(ids) == 0 {
		return sessions, nil
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			slog.Warn("RedisStore.ListSessions: skipping malformed index member", "member", raw)
			continue
		}
		keys = append(keys, s.key(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// indexed but the value is gone
			continue
		}
		sess, err := decodeRedisSession([]byte(str))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	sortNewestFirst(sessions)
	return sessions, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks that the server answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeRedisSession(raw []byte) (*models.InterviewSession, error) {
	var sess models.InterviewSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.TechStack == nil {
		sess.TechStack = []string{}
	}
	if sess.Responses == nil {
		sess.Responses = []models.QA{}
	}
	return &sess, nil
}
