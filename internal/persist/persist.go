// Package persist executes the session writes a conversation asks for without
// making the conversation wait on them.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/metrics"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/store"
)

// Handle identifies the conversation an intent belongs to until the store assigns an id.
type Handle string

// Kind says what an intent asks the store to do.
type Kind string

const (
	KindCreate Kind = "create"
	KindPatch  Kind = "patch"
)

// Intent is one requested write. Create carries NewSession, Patch carries Patch.
type Intent struct {
	Handle     Handle
	Kind       Kind
	NewSession models.NewSession
	Patch      models.SessionPatch
}

// Sink accepts intents. Enqueue must not block the caller.
type Sink interface {
	Enqueue(Intent)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Intent)

func (f SinkFunc) Enqueue(in Intent) { f(in) }

// Discard drops every intent.
var Discard Sink = SinkFunc(func(Intent) {})

const (
	// DefaultQueueSize is the number of intents buffered before new ones are dropped.
	DefaultQueueSize = 256
	// DefaultDrainTimeout bounds how long Run keeps writing after its context ends.
	DefaultDrainTimeout = 5 * time.Second
)

// Worker drains intents one at a time so each conversation's writes reach the store
// in the order they were emitted. Failed writes are logged and counted, never retried.
type Worker struct {
	store        store.SessionStore
	queue        chan Intent
	metrics      *metrics.Metrics
	drainTimeout time.Duration

	mu  sync.RWMutex
	ids map[Handle]int64
}

// Option configures a Worker.
type Option func(*Worker)

// WithQueueSize sets the intent buffer size.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan Intent, n)
		}
	}
}

// WithMetrics records failures on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithDrainTimeout sets how long Run keeps writing queued intents after cancellation.
func WithDrainTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.drainTimeout = d
	}
}

// NewWorker creates a worker writing to st.
func NewWorker(st store.SessionStore, opts ...Option) *Worker {
	w := &Worker{
		store:        st,
		queue:        make(chan Intent, DefaultQueueSize),
		drainTimeout: DefaultDrainTimeout,
		ids:          make(map[Handle]int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enqueue buffers an intent. When the buffer is full the intent is dropped.
func (w *Worker) Enqueue(in Intent) {
	select {
	case w.queue <- in:
		slog.Debug("Worker.Enqueue: intent queued", "handle", in.Handle, "kind", in.Kind)
	default:
		slog.Error("Worker.Enqueue: queue full, dropping intent", "handle", in.Handle, "kind", in.Kind)
		w.metrics.PersistFailed("dropped")
	}
}

// SessionID returns the store id assigned to a handle's session, if it was created.
func (w *Worker) SessionID(h Handle) (int64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.ids[h]
	return id, ok
}

// Forget removes the handle mapping once its conversation is gone.
func (w *Worker) Forget(h Handle) {
	w.mu.Lock()
	delete(w.ids, h)
	w.mu.Unlock()
}

// Pending reports how many intents are waiting.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// Run processes intents until ctx is cancelled, then writes whatever is still queued
// within the drain timeout. Cancelling ctx never aborts a write: store calls run on
// a context detached from it.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("Worker.Run: starting persist worker", "queueSize", cap(w.queue))
	writeCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			w.stop()
			return
		}
		select {
		case <-ctx.Done():
			w.stop()
			return
		case in := <-w.queue:
			w.process(writeCtx, in)
		}
	}
}

func (w *Worker) stop() {
	w.drain()
	slog.Info("Worker.Run: stopping")
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()
	for {
		select {
		case in := <-w.queue:
			w.process(ctx, in)
		default:
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, in Intent) {
	switch in.Kind {
	case KindCreate:
		if err := models.ValidateNewSession(&in.NewSession); err != nil {
			slog.Error("Worker.process: create rejected", "handle", in.Handle, "error", err)
			w.metrics.PersistFailed(string(KindCreate))
			return
		}
		sess, err := w.store.CreateSession(ctx, in.NewSession)
		if err != nil {
			slog.Error("Worker.process: create failed", "handle", in.Handle, "error", err)
			w.metrics.PersistFailed(string(KindCreate))
			return
		}
		w.mu.Lock()
		w.ids[in.Handle] = sess.ID
		w.mu.Unlock()
		slog.Debug("Worker.process: session created", "handle", in.Handle, "sessionID", sess.ID)

	case KindPatch:
		id, ok := w.SessionID(in.Handle)
		if !ok {
			slog.Warn("Worker.process: no session for handle, skipping patch", "handle", in.Handle)
			w.metrics.PersistFailed(string(KindPatch))
			return
		}
		if _, err := w.store.UpdateSession(ctx, id, in.Patch); err != nil {
			slog.Error("Worker.process: patch failed", "handle", in.Handle, "sessionID", id, "error", err)
			w.metrics.PersistFailed(string(KindPatch))
			return
		}
		slog.Debug("Worker.process: session patched", "handle", in.Handle, "sessionID", id)

	default:
		slog.Error("Worker.process: unknown intent kind", "handle", in.Handle, "kind", in.Kind)
	}
}
