package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/flow"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

// ConversationRouter runs one intake conversation per sender over a Service.
//
// A sender's first message starts their conversation and is answered with the
// greeting only. Every later message is submitted to the engine and the reply is
// sent back. Messages that arrive while a reply is being composed are dropped.
// A sender's later messages wait until their greeting has been sent.
type ConversationRouter struct {
	service  Service
	registry *flow.Registry

	wg sync.WaitGroup

	mu    sync.Mutex
	gates map[string]*sync.Mutex
}

// NewConversationRouter routes messages from service into conversations of registry.
func NewConversationRouter(service Service, registry *flow.Registry) *ConversationRouter {
	return &ConversationRouter{service: service, registry: registry, gates: make(map[string]*sync.Mutex)}
}

// gate returns the lock that orders the start of sender's conversation before
// anything else they send.
func (r *ConversationRouter) gate(sender string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[sender]
	if !ok {
		g = &sync.Mutex{}
		r.gates[sender] = g
	}
	return g
}

// Run handles inbound messages until ctx is cancelled or the service closes its
// channel, then waits for in-flight replies.
func (r *ConversationRouter) Run(ctx context.Context) error {
	slog.Info("ConversationRouter.Run: started")
	defer r.wg.Wait()

	responses := r.service.Responses()
	for {
		select {
		case <-ctx.Done():
			slog.Info("ConversationRouter.Run: stopping")
			return nil
		case msg, ok := <-responses:
			if !ok {
				slog.Info("ConversationRouter.Run: service channel closed")
				return nil
			}
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.handle(ctx, msg)
			}()
		}
	}
}

func (r *ConversationRouter) handle(ctx context.Context, msg models.InboundMessage) {
	sender, err := r.service.ValidateAndCanonicalizeRecipient(msg.From)
	if err != nil {
		slog.Warn("ConversationRouter.handle: invalid sender", "from", msg.From, "error", err)
		return
	}

	g := r.gate(sender)
	g.Lock()
	c, greeting, started := r.registry.GetOrStart(sender)
	if started {
		r.send(ctx, sender, greeting.Content)
		g.Unlock()
		return
	}
	g.Unlock()

	reply, err := r.registry.Engine().Submit(ctx, c, msg.Body)
	switch {
	case err == nil:
		r.send(ctx, sender, reply.Content)
	case errors.Is(err, flow.ErrComposing):
		slog.Info("ConversationRouter.handle: dropped message while composing", "from", sender)
	case errors.Is(err, flow.ErrEmptyInput):
		slog.Debug("ConversationRouter.handle: ignored empty message", "from", sender)
	default:
		slog.Warn("ConversationRouter.handle: submit failed", "from", sender, "error", err)
	}
}

func (r *ConversationRouter) send(ctx context.Context, to, body string) {
	if err := r.service.SendMessage(ctx, to, body); err != nil {
		slog.Error("ConversationRouter.send: reply not delivered", "to", to, "error", err)
	}
}
