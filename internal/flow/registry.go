package flow

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

// ErrConversationNotFound is returned for an unknown conversation id.
var ErrConversationNotFound = errors.New("conversation not found")

// Registry owns the live conversations of one process.
type Registry struct {
	engine *Engine

	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewRegistry creates an empty registry whose conversations are started by engine.
func NewRegistry(engine *Engine) *Registry {
	return &Registry{
		engine:        engine,
		conversations: make(map[string]*Conversation),
	}
}

// Engine returns the engine that drives the registered conversations.
func (r *Registry) Engine() *Engine {
	return r.engine
}

// Start creates a conversation with a fresh id and shows its greeting.
func (r *Registry) Start() (*Conversation, models.ChatMessage) {
	c, greeting, _ := r.GetOrStart(uuid.NewString())
	return c, greeting
}

// GetOrStart returns the conversation for id, starting it when it does not exist.
// The greeting is only meaningful when started is true.
func (r *Registry) GetOrStart(id string) (c *Conversation, greeting models.ChatMessage, started bool) {
	r.mu.Lock()
	c, ok := r.conversations[id]
	if ok {
		r.mu.Unlock()
		return c, models.ChatMessage{}, false
	}
	// started before it becomes visible so nobody can submit ahead of the greeting
	c = NewConversation(id)
	greeting = r.engine.Start(c)
	r.conversations[id] = c
	n := len(r.conversations)
	r.mu.Unlock()

	r.engine.metrics.SetActiveConversations(n)
	slog.Info("Registry.GetOrStart: conversation created", "conversationID", id, "active", n)
	return c, greeting, true
}

// Get returns the conversation for id.
func (r *Registry) Get(id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

// Remove forgets a conversation.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conversations, id)
	n := len(r.conversations)
	r.mu.Unlock()
	r.engine.metrics.SetActiveConversations(n)
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}

// Sweep removes conversations with no activity since now minus maxIdle and returns
// their ids. Conversations composing a reply are kept.
func (r *Registry) Sweep(maxIdle time.Duration, now time.Time) []string {
	cutoff := now.Add(-maxIdle)

	r.mu.Lock()
	var removed []string
	for id, c := range r.conversations {
		if c.Composing() || c.LastActivity().After(cutoff) {
			continue
		}
		delete(r.conversations, id)
		removed = append(removed, id)
	}
	n := len(r.conversations)
	r.mu.Unlock()

	if len(removed) > 0 {
		r.engine.metrics.SetActiveConversations(n)
		slog.Info("Registry.Sweep: idle conversations removed", "removed", len(removed), "active", n)
	}
	return removed
}
