// Package models defines the core data structures for the TalentScout intake service.
//
// It includes the chat transcript types, the candidate profile captured by the
// conversation, the persisted interview session and the API response envelope.
package models

import (
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks a message typed by the candidate.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the intake assistant.
	RoleAssistant Role = "assistant"
)

// ChatMessage is one immutable entry of a conversation transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CandidateProfile holds the fields captured so far. A nil field has not been asked yet.
type CandidateProfile struct {
	Name       *string  `json:"name,omitempty"`
	Email      *string  `json:"email,omitempty"`
	Phone      *string  `json:"phone,omitempty"`
	Experience *string  `json:"experience,omitempty"`
	Position   *string  `json:"position,omitempty"`
	Location   *string  `json:"location,omitempty"`
	TechStack  []string `json:"techStack"`
}

// Clone returns a deep copy so snapshots handed out never alias live state.
func (p CandidateProfile) Clone() CandidateProfile {
	out := CandidateProfile{
		Name:       cloneString(p.Name),
		Email:      cloneString(p.Email),
		Phone:      cloneString(p.Phone),
		Experience: cloneString(p.Experience),
		Position:   cloneString(p.Position),
		Location:   cloneString(p.Location),
		TechStack:  make([]string, len(p.TechStack)),
	}
	copy(out.TechStack, p.TechStack)
	return out
}

// QA is a single answered technical question.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// InboundMessage is a message received from a candidate over a chat channel.
type InboundMessage struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse is the envelope used for error bodies and non-record results.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
