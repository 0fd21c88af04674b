// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package client calls a running micropoll server. It satisfies
// votepage.Backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vocaltworld/micropoll/auth"
	"github.com/vocaltworld/micropoll/models"
	"github.com/vocaltworld/micropoll/voting"
)

// APIError is a non-2xx answer from the server. It unwraps to the voting or
// auth sentinel named by Code, so errors.Is works across the wire.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("micropoll: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("micropoll: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	// malformed and forged tokens share one wire code
	if e.Code == "invalid_token" {
		return auth.ErrBadSignature
	}
	return voting.FromCode(e.Code)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL. A nil httpClient uses one
// with a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// GetPoll reads the public view of a poll
func (c *Client) GetPoll(ctx context.Context, id string) (models.PublicPoll, error) {
	var p models.PublicPoll
	err := c.do(ctx, http.MethodGet, "/polls/"+url.PathEscape(id), nil, &p)
	return p, err
}

// IssueLink asks the server for a signed vote link
func (c *Client) IssueLink(ctx context.Context, pollID, email string) (models.LinkResponse, error) {
	var resp models.LinkResponse
	body := map[string]string{"question_id": pollID, "email": email, "format": "json"}
	err := c.do(ctx, http.MethodPost, "/link", body, &resp)
	return resp, err
}

// RequestLink returns only the token of a fresh vote link
func (c *Client) RequestLink(ctx context.Context, pollID, email string) (string, error) {
	resp, err := c.IssueLink(ctx, pollID, email)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("micropoll: link response without token")
	}
	return resp.Token, nil
}

// Vote submits choice with token. pollID may be empty.
func (c *Client) Vote(ctx context.Context, token, choice, pollID string) (models.VoteResponse, error) {
	var resp models.VoteResponse
	body := map[string]string{"token": token, "choice": choice}
	if pollID != "" {
		body["question_id"] = pollID
	}
	err := c.do(ctx, http.MethodPost, "/vote", body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("micropoll: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("micropoll: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("micropoll: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e models.ErrorResponse
		if json.Unmarshal(data, &e) == nil {
			apiErr.Code = e.Code
			apiErr.Message = e.Message
			if apiErr.Message == "" {
				apiErr.Message = e.Error
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("micropoll: decode response: %w", err)
	}
	return nil
}
