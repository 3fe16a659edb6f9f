package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Manager talks to a server's HTTP management API.
type Manager struct {
	baseURL string
	http    *http.Client
}

func NewManager(baseURL string) *Manager {
	return &Manager{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx management response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("management API returned %d: %s", e.StatusCode, e.Message)
}

type LimitStatus struct {
	CurrentLimit      int32 `json:"current_limit"`
	ActiveConnections int32 `json:"active_connections"`
}

type LimitChange struct {
	Status   string `json:"status"`
	OldLimit int32  `json:"old_limit"`
	NewLimit int32  `json:"new_limit"`
	Message  string `json:"message"`
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (m *Manager) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to management server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		msg := string(bytes.TrimSpace(data))
		if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
			msg = failure.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (m *Manager) Health(ctx context.Context) (Health, error) {
	var h Health
	err := m.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

func (m *Manager) Status(ctx context.Context) (LimitStatus, error) {
	var s LimitStatus
	err := m.do(ctx, http.MethodGet, "/limit", nil, &s)
	return s, err
}

// Stats returns the raw /stats document.
func (m *Manager) Stats(ctx context.Context) (map[string]any, error) {
	var s map[string]any
	err := m.do(ctx, http.MethodGet, "/stats", nil, &s)
	return s, err
}

func (m *Manager) SetLimit(ctx context.Context, limit int32) (LimitChange, error) {
	var c LimitChange
	err := m.do(ctx, http.MethodPut, "/limit", map[string]int32{"limit": limit}, &c)
	c.NewLimit = limit
	return c, err
}

func (m *Manager) Increase(ctx context.Context, amount int32) (LimitChange, error) {
	var c LimitChange
	err := m.do(ctx, http.MethodPost, "/limit/increase", map[string]int32{"amount": amount}, &c)
	return c, err
}

func (m *Manager) Decrease(ctx context.Context, amount int32) (LimitChange, error) {
	var c LimitChange
	err := m.do(ctx, http.MethodPost, "/limit/decrease", map[string]int32{"amount": amount}, &c)
	return c, err
}
