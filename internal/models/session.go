package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// SessionStatus is the lifecycle state of a persisted interview session.
type SessionStatus string

const (
	// SessionStatusInProgress is set on creation.
	SessionStatusInProgress SessionStatus = "in_progress"
	// SessionStatusCompleted is set once every queued question has been answered.
	SessionStatusCompleted SessionStatus = "completed"
)

// IsValid reports whether s is one of the known statuses.
func (s SessionStatus) IsValid() bool {
	return s == SessionStatusInProgress || s == SessionStatusCompleted
}

// InterviewSession is the durable record mirroring one candidate's intake.
type InterviewSession struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      *string       `json:"phone"`
	Experience *string       `json:"experience"`
	Position   *string       `json:"position"`
	Location   *string       `json:"location"`
	TechStack  []string      `json:"techStack"`
	Responses  []QA          `json:"responses"`
	Status     SessionStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// NewSession is the create request for an interview session.
type NewSession struct {
	Name       string        `json:"name" validate:"required"`
	Email      string        `json:"email" validate:"required"`
	Phone      *string       `json:"phone,omitempty"`
	Experience *string       `json:"experience,omitempty"`
	Position   *string       `json:"position,omitempty"`
	Location   *string       `json:"location,omitempty"`
	TechStack  []string      `json:"techStack"`
	Responses  []QA          `json:"responses"`
	Status     SessionStatus `json:"status" validate:"omitempty,oneof=in_progress completed"`
}

// Normalize fills defaults for omitted collections and status.
func (n *NewSession) Normalize() {
	if n.TechStack == nil {
		n.TechStack = []string{}
	}
	if n.Responses == nil {
		n.Responses = []QA{}
	}
	if n.Status == "" {
		n.Status = SessionStatusInProgress
	}
}

// SessionPatch carries a partial update. Nil fields are left untouched.
type SessionPatch struct {
	Name       *string        `json:"name,omitempty" validate:"omitnil,min=1"`
	Email      *string        `json:"email,omitempty" validate:"omitnil,min=1"`
	Phone      *string        `json:"phone,omitempty"`
	Experience *string        `json:"experience,omitempty"`
	Position   *string        `json:"position,omitempty"`
	Location   *string        `json:"location,omitempty"`
	TechStack  *[]string      `json:"techStack,omitempty"`
	Responses  *[]QA          `json:"responses,omitempty"`
	Status     *SessionStatus `json:"status,omitempty" validate:"omitnil,oneof=in_progress completed"`
}

// Apply overwrites the fields present in p onto s and bumps UpdatedAt. A completed
// session stays completed whatever the patch says.
func (p SessionPatch) Apply(s *InterviewSession, now time.Time) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.Phone != nil {
		s.Phone = cloneString(p.Phone)
	}
	if p.Experience != nil {
		s.Experience = cloneString(p.Experience)
	}
	if p.Position != nil {
		s.Position = cloneString(p.Position)
	}
	if p.Location != nil {
		s.Location = cloneString(p.Location)
	}
	if p.TechStack != nil {
		s.TechStack = append([]string{}, (*p.TechStack)...)
	}
	if p.Responses != nil {
		s.Responses = append([]QA{}, (*p.Responses)...)
	}
	if p.Status != nil && s.Status != SessionStatusCompleted {
		s.Status = *p.Status
	}
	s.UpdatedAt = now
}

// RegressesStatus reports whether applying p to a session in current would move a
// completed session back to in_progress.
func (p SessionPatch) RegressesStatus(current SessionStatus) bool {
	return p.Status != nil && current == SessionStatusCompleted && *p.Status != SessionStatusCompleted
}

// ErrStatusRegression is returned when a patch tries to reopen a completed session.
var ErrStatusRegression = errors.New("status cannot move from completed back to in_progress")

// ValidationError describes a request that failed shape validation.
type ValidationError struct {
	Fields []FieldError
}

// FieldError is a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateNewSession checks the create request shape.
func ValidateNewSession(n *NewSession) error {
	return toValidationError(validate.Struct(n))
}

// ValidatePatch checks the patch request shape.
func ValidatePatch(p *SessionPatch) error {
	return toValidationError(validate.Struct(p))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: describeTag(fe),
		})
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
