package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract. The store may already hold
// sessions; assertions only look at the ones the suite creates.
func RunSessionStoreContract(t *testing.T, s SessionStore) {
	ctx := context.Background()

	t.Run("Create applies defaults", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		created, err := s.CreateSession(ctx, models.NewSession{
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Location: models.StringPtr("London"),
		})
		require.NoError(t, err)

		assert.NotZero(t, created.ID)
		assert.Equal(t, models.SessionStatusInProgress, created.Status)
		assert.Equal(t, []string{}, created.TechStack)
		assert.Equal(t, []models.QA{}, created.Responses)
		assert.Nil(t, created.Phone)
		require.NotNil(t, created.Location)
		assert.Equal(t, "London", *created.Location)
		assert.True(t, created.CreatedAt.After(before))
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

		loaded, err := s.GetSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, loaded.ID)
		assert.Equal(t, "Ada Lovelace", loaded.Name)
		assert.Equal(t, []string{}, loaded.TechStack)
		assert.Equal(t, []models.QA{}, loaded.Responses)
	})

	t.Run("Get non-existent", func(t *testing.T) {
		_, err := s.GetSession(ctx, 987654321)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Update non-existent", func(t *testing.T) {
		_, err := s.UpdateSession(ctx, 987654321, models.SessionPatch{Phone: models.StringPtr("1")})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Update applies present fields only", func(t *testing.T) {
		created, err := s.CreateSession(ctx, models.NewSession{Name: "Grace", Email: "grace@example.com"})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		stack := []string{"go", "", "sql"}
		updated, err := s.UpdateSession(ctx, created.ID, models.SessionPatch{TechStack: &stack})
		require.NoError(t, err)
		assert.Equal(t, stack, updated.TechStack)
		assert.Equal(t, "Grace", updated.Name)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

		responses := []models.QA{{Question: "Q1", Answer: "A1"}}
		_, err = s.UpdateSession(ctx, created.ID, models.SessionPatch{Responses: &responses})
		require.NoError(t, err)

		completed := models.SessionStatusCompleted
		_, err = s.UpdateSession(ctx, created.ID, models.SessionPatch{Status: &completed})
		require.NoError(t, err)

		loaded, err := s.GetSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, stack, loaded.TechStack)
		assert.Equal(t, responses, loaded.Responses)
		assert.Equal(t, models.SessionStatusCompleted, loaded.Status)
	})

	t.Run("Completed never regresses", func(t *testing.T) {
		created, err := s.CreateSession(ctx, models.NewSession{
			Name:   "Linus",
			Email:  "linus@example.com",
			Status: models.SessionStatusCompleted,
		})
		require.NoError(t, err)

		inProgress := models.SessionStatusInProgress
		updated, err := s.UpdateSession(ctx, created.ID, models.SessionPatch{Status: &inProgress})
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusCompleted, updated.Status)
	})

	t.Run("Concurrent patches are not lost", func(t *testing.T) {
		created, err := s.CreateSession(ctx, models.NewSession{Name: "Barbara", Email: "barbara@example.com"})
		require.NoError(t, err)

		patches := []models.SessionPatch{
			{Phone: models.StringPtr("555-0100")},
			{Experience: models.StringPtr("7")},
			{Position: models.StringPtr("Backend Engineer")},
			{Location: models.StringPtr("Berlin")},
			{TechStack: &[]string{"go"}},
		}
		var wg sync.WaitGroup
		errs := make(chan error, len(patches))
		for _, p := range patches {
			wg.Add(1)
			go func(p models.SessionPatch) {
				defer wg.Done()
				_, err := s.UpdateSession(ctx, created.ID, p)
				errs <- err
			}(p)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		loaded, err := s.GetSession(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded.Phone)
		require.NotNil(t, loaded.Experience)
		require.NotNil(t, loaded.Position)
		require.NotNil(t, loaded.Location)
		assert.Equal(t, "555-0100", *loaded.Phone)
		assert.Equal(t, "7", *loaded.Experience)
		assert.Equal(t, "Backend Engineer", *loaded.Position)
		assert.Equal(t, "Berlin", *loaded.Location)
		assert.Equal(t, []string{"go"}, loaded.TechStack)
	})

	t.Run("List newest first", func(t *testing.T) {
		first, err := s.CreateSession(ctx, models.NewSession{Name: "First", Email: "first@example.com"})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		second, err := s.CreateSession(ctx, models.NewSession{Name: "Second", Email: "second@example.com"})
		require.NoError(t, err)

		list, err := s.ListSessions(ctx)
		require.NoError(t, err)

		pos := map[int64]int{}
		for i, sess := range list {
			pos[sess.ID] = i
		}
		require.Contains(t, pos, first.ID)
		require.Contains(t, pos, second.ID)
		assert.Less(t, pos[second.ID], pos[first.ID])

		for i := 1; i < len(list); i++ {
			assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "list must be ordered by createdAt desc")
		}
	})
}
