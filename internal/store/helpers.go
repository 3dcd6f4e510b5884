package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

// sessionColumns is the column list every SQL backend selects, in scan order.
const sessionColumns = `id, name, email, phone, experience, position, location, tech_stack, responses, status, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nullableString returns nil for a nil pointer so the column is stored as NULL.
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func marshalResponses(qa []models.QA) (string, error) {
	if qa == nil {
		qa = []models.QA{}
	}
	b, err := json.Marshal(qa)
	if err != nil {
		return "", fmt.Errorf("failed to marshal responses: %w", err)
	}
	return string(b), nil
}

func unmarshalResponses(raw []byte) ([]models.QA, error) {
	out := []models.QA{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal responses: %w", err)
	}
	return out, nil
}

// scanSQLiteSession reads a row whose tech_stack and responses are JSON text.
func scanSQLiteSession(row rowScanner) (*models.InterviewSession, error) {
	var s models.InterviewSession
	var phone, experience, position, location sql.NullString
	var techStackJSON, responsesJSON string
	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &phone, &experience, &position, &location,
		&techStackJSON, &responsesJSON, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Phone = stringFromNull(phone)
	s.Experience = stringFromNull(experience)
	s.Position = stringFromNull(position)
	s.Location = stringFromNull(location)

	s.TechStack = []string{}
	if techStackJSON != "" {
		if err := json.Unmarshal([]byte(techStackJSON), &s.TechStack); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tech stack: %w", err)
		}
	}
	if s.Responses, err = unmarshalResponses([]byte(responsesJSON)); err != nil {
		return nil, err
	}
	return &s, nil
}
