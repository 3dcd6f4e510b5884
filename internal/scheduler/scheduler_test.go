package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop(context.Background())

	assert.NoError(t, s.AddJob("sweep", "* * * * *", func() {}))
	assert.NoError(t, s.AddJob("sweep", "@every 10m", func() {}))
	assert.ErrorContains(t, s.AddJob("sweep", "every now and then", func() {}), "invalid schedule")
}

func TestSchedulerRunsJob(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func() { runs.Add(1) }))

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerStopWaitsForJobs(t *testing.T) {
	s := NewScheduler()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	require.NoError(t, s.AddJob("slow", "@every 1s", func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, s.Stop(context.Background()))
}
