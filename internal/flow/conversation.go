package flow

import (
	"sync"
	"time"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/persist"
)

// Conversation is the state of one candidate's intake. All mutation goes through the
// Engine; the accessors return copies and are safe to call concurrently.
type Conversation struct {
	mu sync.Mutex

	id          string
	step        Step
	profile     models.CandidateProfile
	queue       []string
	answerIndex int
	responses   []models.QA
	messages    []models.ChatMessage
	composing   bool
	createdAt   time.Time
}

// NewConversation creates an un-started conversation. Call Engine.Start before
// submitting input.
func NewConversation(id string) *Conversation {
	return &Conversation{
		id:        id,
		step:      StepGreeting,
		profile:   models.CandidateProfile{TechStack: []string{}},
		createdAt: time.Now(),
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string {
	return c.id
}

// Handle is the key the persist worker uses for this conversation's session.
func (c *Conversation) Handle() persist.Handle {
	return persist.Handle(c.id)
}

// Step returns the current step.
func (c *Conversation) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Composing reports whether a reply is being prepared. Input is rejected meanwhile.
func (c *Conversation) Composing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composing
}

// Messages returns the transcript in creation order.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

// Profile returns the captured candidate fields.
func (c *Conversation) Profile() models.CandidateProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Clone()
}

// Snapshot is a consistent copy of a conversation.
type Snapshot struct {
	ID          string                  `json:"id"`
	Step        Step                    `json:"step"`
	Composing   bool                    `json:"composing"`
	Messages    []models.ChatMessage    `json:"messages"`
	Profile     models.CandidateProfile `json:"profile"`
	Questions   []string                `json:"questions"`
	AnswerIndex int                     `json:"answerIndex"`
	Responses   []models.QA             `json:"responses"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// Snapshot copies the whole conversation under one lock.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:          c.id,
		Step:        c.step,
		Composing:   c.composing,
		Messages:    append([]models.ChatMessage{}, c.messages...),
		Profile:     c.profile.Clone(),
		Questions:   append([]string{}, c.queue...),
		AnswerIndex: c.answerIndex,
		Responses:   append([]models.QA{}, c.responses...),
		CreatedAt:   c.createdAt,
	}
}

// LastActivity returns the timestamp of the newest message, or the creation time
// when there is none.
func (c *Conversation) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.messages); n > 0 {
		return c.messages[n-1].Timestamp
	}
	return c.createdAt
}
