package flow

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/persist"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/questions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink keeps every intent together with the step the conversation was in
// when the intent was handed over.
type recordingSink struct {
	mu      sync.Mutex
	conv    *Conversation
	intents []persist.Intent
	steps   []Step
}

func (s *recordingSink) Enqueue(in persist.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, in)
	if s.conv != nil {
		s.steps = append(s.steps, s.conv.Step())
	}
}

func (s *recordingSink) all() []persist.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]persist.Intent(nil), s.intents...)
}

var profileAnswers = []string{
	"Ada Lovelace",
	"ada@example.com",
	"555-0100",
	"5",
	"Backend Engineer",
	"London",
}

func newStartedConversation(t *testing.T, opts ...Option) (*Engine, *Conversation, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	e := NewEngine(append([]Option{WithComposingDelay(0), WithSink(sink)}, opts...)...)
	c := NewConversation("conv-test")
	sink.conv = c
	e.Start(c)
	return e, c, sink
}

func submitAll(t *testing.T, e *Engine, c *Conversation, inputs ...string) []models.ChatMessage {
	t.Helper()
	var replies []models.ChatMessage
	for _, in := range inputs {
		reply, err := e.Submit(context.Background(), c, in)
		require.NoError(t, err, "input %q", in)
		replies = append(replies, reply)
	}
	return replies
}

func TestStartShowsGreeting(t *testing.T) {
	_, c, _ := newStartedConversation(t)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, GreetingMessageID, msgs[0].ID)
	assert.Equal(t, models.RoleAssistant, msgs[0].Role)
	assert.Equal(t, GreetingText, msgs[0].Content)
	assert.Equal(t, StepName, c.Step())
}

func TestProfileStepsCaptureInput(t *testing.T) {
	e, c, sink := newStartedConversation(t)

	replies := submitAll(t, e, c, profileAnswers...)
	assert.Equal(t, "Nice to meet you, Ada Lovelace. What is your email address?", replies[0].Content)
	assert.Equal(t, "Got it. What is your phone number?", replies[1].Content)
	assert.Equal(t, "Thanks. How many years of experience do you have in the tech industry?", replies[2].Content)
	assert.Equal(t, "Impressive. What position(s) are you applying for?", replies[3].Content)
	assert.Equal(t, "And where are you currently located?", replies[4].Content)
	assert.Equal(t, "Great. Now, please list your Tech Stack (programming languages, frameworks, tools, etc.) separated by commas.", replies[5].Content)
	assert.Equal(t, StepTechStack, c.Step())

	p := c.Profile()
	assert.Equal(t, "Ada Lovelace", *p.Name)
	assert.Equal(t, "ada@example.com", *p.Email)
	assert.Equal(t, "555-0100", *p.Phone)
	assert.Equal(t, "5", *p.Experience)
	assert.Equal(t, "Backend Engineer", *p.Position)
	assert.Equal(t, "London", *p.Location)

	intents := sink.all()
	require.Len(t, intents, 1, "exactly one create, at the end of the location step")
	assert.Equal(t, persist.KindCreate, intents[0].Kind)
	assert.Equal(t, persist.Handle("conv-test"), intents[0].Handle)
	assert.Equal(t, "Ada Lovelace", intents[0].NewSession.Name)
	assert.Equal(t, "London", *intents[0].NewSession.Location)
	assert.Equal(t, models.SessionStatusInProgress, intents[0].NewSession.Status)
	assert.Equal(t, []string{}, intents[0].NewSession.TechStack)
	assert.Equal(t, StepTechStack, sink.steps[0], "create is issued after the transition commits")
}

func TestTechStackBuildsQueue(t *testing.T) {
	bank := questions.DefaultBank()
	python, _ := bank.Lookup("python")
	react, _ := bank.Lookup("react")

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "two skills", input: "Python, React", want: []string{python[0], python[1], react[0], react[1]}},
		{name: "unknown skill", input: "unknownlang", want: bank.Default()},
		{name: "trailing comma", input: "python,", want: python[:2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, c, sink := newStartedConversation(t)
			submitAll(t, e, c, profileAnswers...)

			reply, err := e.Submit(context.Background(), c, tt.input)
			require.NoError(t, err)

			snap := c.Snapshot()
			assert.Equal(t, tt.want, snap.Questions)
			assert.LessOrEqual(t, len(snap.Questions), questions.MaxQueueLength)
			assert.Equal(t, 0, snap.AnswerIndex)
			assert.Equal(t, StepQuestions, snap.Step)
			assert.Equal(t, "Thank you. Based on your skills, I have a few technical questions for you.\n\nFirst Question: "+tt.want[0], reply.Content)

			intents := sink.all()
			require.Len(t, intents, 2)
			patch := intents[1]
			assert.Equal(t, persist.KindPatch, patch.Kind)
			require.NotNil(t, patch.Patch.TechStack)
			assert.Equal(t, questions.ParseSkills(tt.input), *patch.Patch.TechStack)
		})
	}
}

func TestQuestionsRunToClosing(t *testing.T) {
	e, c, sink := newStartedConversation(t)
	submitAll(t, e, c, profileAnswers...)
	submitAll(t, e, c, "python, react")

	queue := c.Snapshot().Questions
	require.Len(t, queue, 4)

	for i := 0; i < len(queue)-1; i++ {
		reply, err := e.Submit(context.Background(), c, "answer")
		require.NoError(t, err)
		assert.Equal(t, "Thank you. Next question:\n\n"+queue[i+1], reply.Content)
		assert.Equal(t, StepQuestions, c.Step())
	}
	reply, err := e.Submit(context.Background(), c, "last answer")
	require.NoError(t, err)
	assert.Equal(t, CompletionText, reply.Content)
	assert.Equal(t, StepClosing, c.Step())

	snap := c.Snapshot()
	require.Len(t, snap.Responses, len(queue))
	for i, qa := range snap.Responses {
		assert.Equal(t, queue[i], qa.Question)
	}
	assert.Equal(t, "last answer", snap.Responses[3].Answer)

	// create, techStack, 4 response snapshots, completed
	intents := sink.all()
	require.Len(t, intents, 7)
	for i := 2; i < 6; i++ {
		require.NotNil(t, intents[i].Patch.Responses)
		assert.Len(t, *intents[i].Patch.Responses, i-1)
	}
	require.NotNil(t, intents[6].Patch.Status)
	assert.Equal(t, models.SessionStatusCompleted, *intents[6].Patch.Status)

	completed := 0
	for _, in := range intents {
		if in.Patch.Status != nil {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestClosingIsTerminal(t *testing.T) {
	e, c, sink := newStartedConversation(t)
	submitAll(t, e, c, profileAnswers...)
	submitAll(t, e, c, "cobol")
	for range c.Snapshot().Questions {
		submitAll(t, e, c, "answer")
	}
	require.Equal(t, StepClosing, c.Step())

	before := c.Snapshot()
	intentCount := len(sink.all())

	for _, in := range []string{"hello?", "Ada", "python"} {
		reply, err := e.Submit(context.Background(), c, in)
		require.NoError(t, err)
		assert.Equal(t, ClosedText, reply.Content)
	}

	after := c.Snapshot()
	assert.Equal(t, StepClosing, after.Step)
	assert.Equal(t, before.Profile, after.Profile)
	assert.Equal(t, before.Responses, after.Responses)
	assert.Len(t, after.Messages, len(before.Messages)+6)
	assert.Len(t, sink.all(), intentCount)
}

func TestFallbackResetsToName(t *testing.T) {
	t.Run("not started", func(t *testing.T) {
		e := NewEngine(WithComposingDelay(0))
		c := NewConversation("fresh")

		reply, err := e.Submit(context.Background(), c, "hi")
		require.NoError(t, err)
		assert.Equal(t, FallbackText, reply.Content)
		assert.Equal(t, StepName, c.Step())
	})

	t.Run("corrupt step keeps profile", func(t *testing.T) {
		e, c, sink := newStartedConversation(t)
		submitAll(t, e, c, "Ada", "ada@example.com")

		c.mu.Lock()
		c.step = Step(42)
		c.mu.Unlock()

		reply, err := e.Submit(context.Background(), c, "whatever")
		require.NoError(t, err)
		assert.Equal(t, FallbackText, reply.Content)
		assert.Equal(t, StepName, c.Step())

		p := c.Profile()
		assert.Equal(t, "Ada", *p.Name)
		assert.Equal(t, "ada@example.com", *p.Email)
		assert.Empty(t, sink.all())
	})
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	e, c, _ := newStartedConversation(t)
	_, err := e.Submit(context.Background(), c, "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Len(t, c.Messages(), 1)
	assert.Equal(t, StepName, c.Step())
}

func TestSubmitRejectsWhileComposing(t *testing.T) {
	e, c, _ := newStartedConversation(t, WithComposingDelay(200*time.Millisecond))

	done := make(chan models.ChatMessage, 1)
	go func() {
		reply, err := e.Submit(context.Background(), c, "Ada")
		if err == nil {
			done <- reply
		}
		close(done)
	}()

	require.Eventually(t, c.Composing, time.Second, time.Millisecond)
	msgs := c.Messages()
	assert.Equal(t, models.RoleUser, msgs[len(msgs)-1].Role, "user message is visible while composing")

	_, err := e.Submit(context.Background(), c, "Grace")
	assert.ErrorIs(t, err, ErrComposing)

	reply, ok := <-done
	require.True(t, ok)
	assert.Equal(t, "Nice to meet you, Ada. What is your email address?", reply.Content)
	assert.False(t, c.Composing())
	assert.Len(t, c.Messages(), 3)
}

func TestSubmitCancelledDuringDelay(t *testing.T) {
	e, c, sink := newStartedConversation(t, WithComposingDelay(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Submit(ctx, c, "Ada")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.False(t, c.Composing())
	assert.Len(t, c.Messages(), 1)
	assert.Equal(t, StepName, c.Step())
	assert.Empty(t, sink.all())
}

func TestPersistenceDoesNotChangeReplies(t *testing.T) {
	inputs := append(append([]string{}, profileAnswers...), "java", "a1", "a2", "a3")

	run := func(sink persist.Sink) []string {
		e := NewEngine(WithComposingDelay(0), WithSink(sink))
		c := NewConversation("same-id")
		e.Start(c)
		for _, in := range inputs {
			_, err := e.Submit(context.Background(), c, in)
			require.NoError(t, err)
		}
		var out []string
		for _, m := range c.Messages() {
			out = append(out, m.Content)
		}
		return out
	}

	dropped := run(persist.Discard)
	recorded := run(&recordingSink{})
	assert.Equal(t, dropped, recorded)
}

func TestCustomBankWithoutQuestionsCloses(t *testing.T) {
	e, c, sink := newStartedConversation(t, WithQuestionBank(questions.Bank{"go": {}}))
	submitAll(t, e, c, profileAnswers...)

	reply, err := e.Submit(context.Background(), c, "rust")
	require.NoError(t, err)
	assert.Equal(t, CompletionText, reply.Content)
	assert.Equal(t, StepClosing, c.Step())
	assert.Len(t, sink.all(), 3)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "TECH_STACK", StepTechStack.String())
	assert.Equal(t, "Step(42)", Step(42).String())

	s, err := ParseStep("QUESTIONS")
	require.NoError(t, err)
	assert.Equal(t, StepQuestions, s)
	_, err = ParseStep("NOPE")
	assert.Error(t, err)

	text, err := StepClosing.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "CLOSING", string(text))
}

func TestStepJSONRoundTrip(t *testing.T) {
	var out struct {
		Step Step `json:"step"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"step":"LOCATION"}`), &out))
	assert.Equal(t, StepLocation, out.Step)
	assert.Error(t, json.Unmarshal([]byte(`{"step":"LUNCH"}`), &out))
}
