package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryStart(t *testing.T) {
	r := NewRegistry(NewEngine(WithComposingDelay(0)))

	c, greeting := r.Start()
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, GreetingText, greeting.Content)
	assert.Equal(t, StepName, c.Step())
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	other, _ := r.Start()
	assert.NotEqual(t, c.ID(), other.ID())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryGetOrStart(t *testing.T) {
	r := NewRegistry(NewEngine(WithComposingDelay(0)))

	c, greeting, started := r.GetOrStart("+15550100")
	require.True(t, started)
	assert.Equal(t, GreetingMessageID, greeting.ID)

	_, err := r.Engine().Submit(context.Background(), c, "Ada")
	require.NoError(t, err)

	again, _, started := r.GetOrStart("+15550100")
	assert.False(t, started)
	assert.Same(t, c, again)
	assert.Equal(t, StepEmail, again.Step())
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(NewEngine())
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(NewEngine())
	c, _ := r.Start()
	r.Remove(c.ID())
	assert.Equal(t, 0, r.Len())
	_, err := r.Get(c.ID())
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	r := NewRegistry(NewEngine(WithComposingDelay(0), WithClock(func() time.Time { return clock })))

	stale, _, _ := r.GetOrStart("+15550100")
	clock = now.Add(50 * time.Minute)
	fresh, _, _ := r.GetOrStart("+15550101")

	removed := r.Sweep(30*time.Minute, now.Add(time.Hour))
	assert.Equal(t, []string{stale.ID()}, removed)
	assert.Equal(t, 1, r.Len())

	_, err := r.Get(fresh.ID())
	assert.NoError(t, err)
	assert.Empty(t, r.Sweep(30*time.Minute, now.Add(time.Hour)))
}

func TestRegistrySweepKeepsComposing(t *testing.T) {
	r := NewRegistry(NewEngine(WithComposingDelay(time.Hour)))
	c, _ := r.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Engine().Submit(ctx, c, "Ada")
	require.Eventually(t, c.Composing, time.Second, 5*time.Millisecond)

	assert.Empty(t, r.Sweep(0, time.Now().Add(time.Hour)))
	assert.Equal(t, 1, r.Len())
}
