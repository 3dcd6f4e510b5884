// Package messaging connects chat channels to intake conversations.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

const (
	// DefaultChannelBufferSize is the capacity of a service's inbound channel.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds how long an inbound message waits for buffer space.
	DefaultChannelTimeout = 1 * time.Second

	minPhoneDigits = 6
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service is a chat channel candidates talk to the assistant through.
type Service interface {
	// ValidateAndCanonicalizeRecipient returns the canonical form of a sender or
	// recipient identifier. Conversations are keyed by this form.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins receiving inbound messages.
	Start(ctx context.Context) error

	// Stop stops receiving and closes the Responses channel.
	Stop() error

	// Responses returns the inbound candidate messages.
	Responses() <-chan models.InboundMessage
}

// canonicalizePhone strips everything but digits and requires a plausible length.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < minPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, minPhoneDigits)
	}
	return canonical, nil
}

// inbox is the inbound channel shared by the services. emit and close are safe to
// call concurrently; messages emitted after close are dropped.
type inbox struct {
	mu        sync.RWMutex
	stopped   bool
	responses chan models.InboundMessage
}

func newInbox() *inbox {
	return &inbox{responses: make(chan models.InboundMessage, DefaultChannelBufferSize)}
}

func (b *inbox) emit(msg models.InboundMessage) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		slog.Warn("inbox.emit: service stopped, dropping inbound message", "from", msg.From)
		return false
	}
	select {
	case b.responses <- msg:
		return true
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("inbox.emit: channel blocked, dropping inbound message", "from", msg.From, "timeout", DefaultChannelTimeout)
		return false
	}
}

// close reports false if the inbox was already closed.
func (b *inbox) close() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return false
	}
	b.stopped = true
	close(b.responses)
	return true
}

func (b *inbox) isStopped() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stopped
}
