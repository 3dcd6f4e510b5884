package messaging

import (
	"context"
	"log/slog"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/whatsapp"
	"go.mau.fi/whatsmeow/types/events"
)

// eventSource is the part of whatsapp.Client that delivers inbound events.
type eventSource interface {
	AddEventHandler(h func(evt interface{}))
	Disconnect()
}

// WhatsAppService implements Service over a whatsmeow client.
type WhatsAppService struct {
	client whatsapp.Sender
	events eventSource
	inbox  *inbox
}

// NewWhatsAppService wraps client. Inbound messages are only received when client
// also delivers events, as *whatsapp.Client does.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	s := &WhatsAppService{client: client, inbox: newInbox()}
	if src, ok := client.(eventSource); ok {
		s.events = src
	}
	return s
}

func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start registers the inbound message handler.
func (s *WhatsAppService) Start(ctx context.Context) error {
	if s.events == nil {
		slog.Debug("WhatsAppService.Start: client delivers no events, inbound disabled")
		return nil
	}
	s.events.AddEventHandler(func(evt interface{}) {
		if msg, ok := evt.(*events.Message); ok {
			s.handleIncomingMessage(msg)
		}
	})
	slog.Info("WhatsAppService.Start: receiving messages")
	return nil
}

// Stop closes the inbound channel and disconnects the client.
func (s *WhatsAppService) Stop() error {
	if !s.inbox.close() {
		return nil
	}
	if s.events != nil {
		s.events.Disconnect()
	}
	slog.Info("WhatsAppService.Stop: stopped")
	return nil
}

func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	if s.inbox.isStopped() {
		return ErrServiceStopped
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		slog.Error("WhatsAppService.SendMessage: send failed", "error", err, "to", canonicalTo)
		return err
	}
	return nil
}

func (s *WhatsAppService) Responses() <-chan models.InboundMessage {
	return s.inbox.responses
}

// handleIncomingMessage forwards direct text messages. Our own messages, group
// chats and media are ignored.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Message == nil || evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}

	var text string
	switch {
	case evt.Message.Conversation != nil:
		text = *evt.Message.Conversation
	case evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil:
		text = *evt.Message.ExtendedTextMessage.Text
	default:
		slog.Debug("WhatsAppService.handleIncomingMessage: ignoring non-text message", "from", evt.Info.Sender.User)
		return
	}

	msg := models.InboundMessage{
		From: evt.Info.Sender.User,
		Body: text,
		Time: evt.Info.Timestamp.Unix(),
	}
	if s.inbox.emit(msg) {
		slog.Debug("WhatsAppService.handleIncomingMessage: forwarded", "from", msg.From, "body_length", len(msg.Body))
	}
}
