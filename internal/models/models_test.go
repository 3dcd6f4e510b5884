package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNewSession(t *testing.T) {
	tests := []struct {
		name      string
		req       NewSession
		wantField string
	}{
		{name: "valid", req: NewSession{Name: "Ada", Email: "ada@example.com"}},
		{name: "empty name", req: NewSession{Name: "", Email: "ada@example.com"}, wantField: "name"},
		{name: "missing email", req: NewSession{Name: "Ada"}, wantField: "email"},
		{name: "bad status", req: NewSession{Name: "Ada", Email: "a@b", Status: "archived"}, wantField: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewSession(&tt.req)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestValidatePatch(t *testing.T) {
	require.NoError(t, ValidatePatch(&SessionPatch{}))

	completed := SessionStatusCompleted
	require.NoError(t, ValidatePatch(&SessionPatch{Status: &completed}))

	bogus := SessionStatus("paused")
	err := ValidatePatch(&SessionPatch{Status: &bogus})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Fields[0].Field)

	err = ValidatePatch(&SessionPatch{Name: StringPtr("")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Fields[0].Field)
}

func TestNewSessionNormalize(t *testing.T) {
	n := NewSession{Name: "Ada", Email: "ada@example.com"}
	n.Normalize()
	assert.Equal(t, SessionStatusInProgress, n.Status)
	assert.NotNil(t, n.TechStack)
	assert.NotNil(t, n.Responses)
}

func TestSessionPatchApply(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := InterviewSession{
		ID:        7,
		Name:      "Ada",
		Email:     "ada@example.com",
		TechStack: []string{},
		Responses: []QA{},
		Status:    SessionStatusInProgress,
		CreatedAt: created,
		UpdatedAt: created,
	}

	stack := []string{"go", "sql"}
	now := created.Add(time.Minute)
	SessionPatch{TechStack: &stack, Location: StringPtr("Lisbon")}.Apply(&s, now)

	assert.Equal(t, []string{"go", "sql"}, s.TechStack)
	assert.Equal(t, "Lisbon", *s.Location)
	assert.Equal(t, "Ada", s.Name)
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, now, s.UpdatedAt)

	// the patch's slice must not alias the stored one
	stack[0] = "rust"
	assert.Equal(t, "go", s.TechStack[0])
}

func TestSessionPatchApplyKeepsCompleted(t *testing.T) {
	s := InterviewSession{Status: SessionStatusCompleted}
	inProgress := SessionStatusInProgress
	SessionPatch{Status: &inProgress}.Apply(&s, time.Now())
	assert.Equal(t, SessionStatusCompleted, s.Status)
}

func TestSessionPatchRegressesStatus(t *testing.T) {
	inProgress := SessionStatusInProgress
	completed := SessionStatusCompleted

	assert.True(t, SessionPatch{Status: &inProgress}.RegressesStatus(SessionStatusCompleted))
	assert.False(t, SessionPatch{Status: &completed}.RegressesStatus(SessionStatusCompleted))
	assert.False(t, SessionPatch{Status: &completed}.RegressesStatus(SessionStatusInProgress))
	assert.False(t, SessionPatch{}.RegressesStatus(SessionStatusCompleted))
}

func TestCandidateProfileClone(t *testing.T) {
	p := CandidateProfile{Name: StringPtr("Ada"), TechStack: []string{"go"}}
	c := p.Clone()
	*c.Name = "Grace"
	c.TechStack[0] = "java"

	assert.Equal(t, "Ada", *p.Name)
	assert.Equal(t, "go", p.TechStack[0])
	assert.Nil(t, c.Email)
}

func TestAPIResponseHelpers(t *testing.T) {
	e := Error("boom")
	assert.Equal(t, APIStatusError, e.Status)
	assert.Equal(t, "boom", e.Message)

	s := SuccessWithMessage("done", 3)
	assert.Equal(t, APIStatusOK, s.Status)
	assert.Equal(t, 3, s.Result)
}
