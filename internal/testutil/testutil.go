// Package testutil provides HTTP and store helpers shared by TalentScout tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/store"
)

// TestingT is the subset of testing.TB the helpers need.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewJSONRequest builds a request. A string body is sent as is, an empty string or
// nil sends no body, anything else is marshaled to JSON.
func NewJSONRequest(t TestingT, method, target string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		if b != "" {
			r = bytes.NewBufferString(b)
		}
	default:
		r = bytes.NewReader(MustMarshalJSON(t, b))
	}
	req := httptest.NewRequest(method, target, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// ServeJSON runs one request against h and returns the recorded response.
func ServeJSON(t TestingT, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, NewJSONRequest(t, method, target, body))
	return rec
}

// DecodeJSON unmarshals the recorded body into dst.
func DecodeJSON(t TestingT, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode JSON response %q: %v", rec.Body.String(), err)
	}
}

// AssertErrorEnvelope checks the status code and the error envelope and returns it.
func AssertErrorEnvelope(t TestingT, rec *httptest.ResponseRecorder, wantCode int) models.APIResponse {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("expected status %d, got %d (body %s)", wantCode, rec.Code, rec.Body.String())
	}
	var resp models.APIResponse
	DecodeJSON(t, rec, &resp)
	if resp.Status != models.APIStatusError {
		t.Errorf("expected status field %q, got %q", models.APIStatusError, resp.Status)
	}
	if resp.Message == "" {
		t.Errorf("error envelope has no message")
	}
	return resp
}

// SeedSessions creates one session per name, in order.
func SeedSessions(t TestingT, st store.SessionStore, names ...string) []*models.InterviewSession {
	t.Helper()
	out := make([]*models.InterviewSession, 0, len(names))
	for _, name := range names {
		sess, err := st.CreateSession(context.Background(), models.NewSession{
			Name:  name,
			Email: fmt.Sprintf("%s@example.com", name),
		})
		if err != nil {
			t.Fatalf("failed to seed session %q: %v", name, err)
		}
		out = append(out, sess)
	}
	return out
}

// MustMarshalJSON marshals v and fails the test on error.
func MustMarshalJSON(t TestingT, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

var _ TestingT = (*testing.T)(nil)
