// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vocaltworld/micropoll/cliparse"
	"github.com/vocaltworld/micropoll/clock"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/store/sqlstore"
	"github.com/vocaltworld/micropoll/testutil"
	"github.com/vocaltworld/micropoll/voting"
)

type testEnv struct {
	store    *sqlstore.Storage
	cfg      cliparse.Config
	clock    *clock.FakeClock
	issuer   *voting.Issuer
	recorder *voting.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := testutil.SetupTestStore(t)
	cfg := testutil.GetTestConfig()
	clk := clock.Fake(time.Now().UTC().Truncate(time.Second))
	secret := []byte(cfg.PollSecret)

	return &testEnv{
		store:    s,
		cfg:      cfg,
		clock:    clk,
		issuer:   voting.NewIssuer(secret, cfg.LinkTTL, clk),
		recorder: voting.NewRecorder(secret, s, s, clk, cfg.StoreVoterEmail),
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
