// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/cliparse"
	"github.com/vocaltworld/micropoll/db"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store"
	"github.com/vocaltworld/micropoll/store/sqlstore"
)

const (
	TestPollSecret    = "test-poll-secret"
	TestRateLimitSalt = "test-rate-limit-salt"
	TestAdminKey      = "test-admin-key"
	TestBaseURL       = "https://survey.test"
)

// SetupTestStore creates a fresh sqlite store with the full schema in a
// per-test temp directory
func SetupTestStore(t *testing.T) *sqlstore.Storage {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "micropoll.db") + "?_pragma=busy_timeout(5000)"
	s, err := sqlstore.Open(sqlstore.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := db.CreateSchema(s.DB()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return s
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseType:    cliparse.DBSQLite,
		DatabaseURL:     "file::memory:",
		PollSecret:      TestPollSecret,
		AdminKey:        TestAdminKey,
		LinkTTL:         cliparse.DefaultLinkTTL,
		RedirectBases:   []string{TestBaseURL, "http://localhost:5173"},
		AllowedOrigins:  []string{TestBaseURL, "http://localhost:5173"},
		LinkRateLimit:   cliparse.DefaultLinkRateLimit,
		RateWindow:      cliparse.DefaultRateWindow,
		RateLimitSalt:   TestRateLimitSalt,
		StoreVoterEmail: true,
	}
}

// CreateTestPoll inserts a poll with the given id and active flag
func CreateTestPoll(t *testing.T, s store.PollStore, id string, active bool) models.Poll {
	t.Helper()

	p := models.Poll{
		ID:        id,
		Question:  "Would you try a vocal coaching app?",
		OptionYes: "Yes",
		OptionNo:  "No",
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreatePoll(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return p
}

// SignTestToken signs a token with TestPollSecret
func SignTestToken(t *testing.T, email, pollID string, expiresAt time.Time) string {
	t.Helper()

	token, err := auth.Sign(auth.NewPayload(email, pollID, expiresAt), []byte(TestPollSecret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
