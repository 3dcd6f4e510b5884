package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/metrics"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/persist"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/questions"
)

// Assistant texts.
const (
	GreetingMessageID = "init"
	GreetingText      = "Hello! I'm TalentScout AI, your hiring assistant. I'm here to help you with your initial screening. To get started, could you please tell me your full name?"

	askEmailFormat   = "Nice to meet you, %s. What is your email address?"
	askPhoneText     = "Got it. What is your phone number?"
	askExperience    = "Thanks. How many years of experience do you have in the tech industry?"
	askPositionText  = "Impressive. What position(s) are you applying for?"
	askLocationText  = "And where are you currently located?"
	askTechStackText = "Great. Now, please list your Tech Stack (programming languages, frameworks, tools, etc.) separated by commas."
	firstQuestionFmt = "Thank you. Based on your skills, I have a few technical questions for you.\n\nFirst Question: %s"
	nextQuestionFmt  = "Thank you. Next question:\n\n%s"

	CompletionText = "Thank you for answering those questions. That concludes our initial screening. Our recruitment team will review your responses and get back to you shortly. Have a great day!"
	ClosedText     = "The session has ended. You can close this window."
	FallbackText   = "I'm not sure how to proceed. Let's start over."
)

// DefaultComposingDelay is how long the assistant appears to type before replying.
const DefaultComposingDelay = 1500 * time.Millisecond

var (
	// ErrComposing is returned when input arrives while a reply is being composed.
	ErrComposing = errors.New("a reply is already being composed")
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("input is empty")
)

// Engine runs the intake script. It holds no per-conversation state and can drive
// any number of conversations concurrently.
type Engine struct {
	bank    questions.Bank
	delay   time.Duration
	sink    persist.Sink
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithQuestionBank replaces the built-in question bank.
func WithQuestionBank(b questions.Bank) Option {
	return func(e *Engine) {
		if b != nil {
			e.bank = b
		}
	}
}

// WithComposingDelay sets the typing delay. Zero replies immediately.
func WithComposingDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.delay = d
	}
}

// WithSink sets where persistence intents go.
func WithSink(s persist.Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithMetrics records step and conversation counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with the built-in bank, the default delay and no persistence.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		bank:  questions.DefaultBank(),
		delay: DefaultComposingDelay,
		sink:  persist.Discard,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComposingDelay returns the configured typing delay.
func (e *Engine) ComposingDelay() time.Duration {
	return e.delay
}

// Start shows the greeting and moves the conversation to the name prompt.
func (e *Engine) Start(c *Conversation) models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	greeting := models.ChatMessage{
		ID:        GreetingMessageID,
		Role:      models.RoleAssistant,
		Content:   GreetingText,
		Timestamp: e.now(),
	}
	c.messages = append(c.messages, greeting)
	c.step = StepName

	e.metrics.ConversationStarted()
	e.metrics.StepEntered(StepName.String())
	slog.Debug("Engine.Start: conversation started", "conversationID", c.id)
	return greeting
}

// Submit records the candidate's input, waits out the composing delay, applies the
// step transition and returns the assistant reply. Session writes are handed to the
// sink after the transition is committed and are not awaited.
//
// If ctx ends during the delay the input is withdrawn and ctx.Err() is returned.
func (e *Engine) Submit(ctx context.Context, c *Conversation, input string) (models.ChatMessage, error) {
	if strings.TrimSpace(input) == "" {
		return models.ChatMessage{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.composing {
		c.mu.Unlock()
		e.metrics.ComposingRejected()
		slog.Debug("Engine.Submit: rejected while composing", "conversationID", c.id)
		return models.ChatMessage{}, ErrComposing
	}
	c.composing = true
	c.messages = append(c.messages, e.message(models.RoleUser, input))
	c.mu.Unlock()

	if err := e.wait(ctx); err != nil {
		c.mu.Lock()
		c.messages = c.messages[:len(c.messages)-1]
		c.composing = false
		c.mu.Unlock()
		slog.Debug("Engine.Submit: cancelled while composing", "conversationID", c.id, "error", err)
		return models.ChatMessage{}, err
	}

	c.mu.Lock()
	from := c.step
	text, intents := e.transition(c, input)
	reply := e.message(models.RoleAssistant, text)
	c.messages = append(c.messages, reply)
	to := c.step
	c.composing = false
	c.mu.Unlock()

	if to != from {
		e.metrics.StepEntered(to.String())
		if to == StepClosing {
			e.metrics.ConversationCompleted()
		}
	}
	slog.Debug("Engine.Submit: transition applied", "conversationID", c.id, "from", from, "to", to, "intents", len(intents))

	for _, in := range intents {
		e.sink.Enqueue(in)
	}
	return reply, nil
}

func (e *Engine) wait(ctx context.Context) error {
	if e.delay <= 0 {
		return nil
	}
	t := time.NewTimer(e.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) message(role models.Role, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: e.now(),
	}
}

// transition applies input to c and returns the reply and the writes to issue.
// The caller holds c.mu.
func (e *Engine) transition(c *Conversation, input string) (string, []persist.Intent) {
	switch c.step {
	case StepName:
		c.profile.Name = models.StringPtr(input)
		c.step = StepEmail
		return fmt.Sprintf(askEmailFormat, input), nil

	case StepEmail:
		c.profile.Email = models.StringPtr(input)
		c.step = StepPhone
		return askPhoneText, nil

	case StepPhone:
		c.profile.Phone = models.StringPtr(input)
		c.step = StepExperience
		return askExperience, nil

	case StepExperience:
		c.profile.Experience = models.StringPtr(input)
		c.step = StepPosition
		return askPositionText, nil

	case StepPosition:
		c.profile.Position = models.StringPtr(input)
		c.step = StepLocation
		return askLocationText, nil

	case StepLocation:
		c.profile.Location = models.StringPtr(input)
		c.step = StepTechStack
		return askTechStackText, []persist.Intent{{
			Handle:     c.Handle(),
			Kind:       persist.KindCreate,
			NewSession: newSessionFromProfile(c.profile),
		}}

	case StepTechStack:
		skills := questions.ParseSkills(input)
		c.profile.TechStack = skills
		c.queue = e.bank.BuildQueue(skills)
		c.answerIndex = 0
		stack := append([]string{}, skills...)
		intents := []persist.Intent{{
			Handle: c.Handle(),
			Kind:   persist.KindPatch,
			Patch:  models.SessionPatch{TechStack: &stack},
		}}
		if len(c.queue) == 0 {
			// a bank without a default list can leave nothing to ask
			c.step = StepClosing
			return CompletionText, append(intents, completedIntent(c))
		}
		c.step = StepQuestions
		return fmt.Sprintf(firstQuestionFmt, c.queue[0]), intents

	case StepQuestions:
		if c.answerIndex >= len(c.queue) {
			return e.fallback(c), nil
		}
		c.responses = append(c.responses, models.QA{Question: c.queue[c.answerIndex], Answer: input})
		responses := append([]models.QA{}, c.responses...)
		intents := []persist.Intent{{
			Handle: c.Handle(),
			Kind:   persist.KindPatch,
			Patch:  models.SessionPatch{Responses: &responses},
		}}
		if c.answerIndex < len(c.queue)-1 {
			c.answerIndex++
			return fmt.Sprintf(nextQuestionFmt, c.queue[c.answerIndex]), intents
		}
		c.step = StepClosing
		return CompletionText, append(intents, completedIntent(c))

	case StepClosing:
		return ClosedText, nil

	default:
		return e.fallback(c), nil
	}
}

func (e *Engine) fallback(c *Conversation) string {
	slog.Warn("Engine.transition: unrecognized step, restarting at name prompt", "conversationID", c.id, "step", c.step)
	e.metrics.FallbackReset()
	c.step = StepName
	return FallbackText
}

func completedIntent(c *Conversation) persist.Intent {
	status := models.SessionStatusCompleted
	return persist.Intent{
		Handle: c.Handle(),
		Kind:   persist.KindPatch,
		Patch:  models.SessionPatch{Status: &status},
	}
}

func newSessionFromProfile(p models.CandidateProfile) models.NewSession {
	p = p.Clone()
	n := models.NewSession{
		Phone:      p.Phone,
		Experience: p.Experience,
		Position:   p.Position,
		Location:   p.Location,
		TechStack:  []string{},
		Responses:  []models.QA{},
		Status:     models.SessionStatusInProgress,
	}
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Email != nil {
		n.Email = *p.Email
	}
	return n
}
