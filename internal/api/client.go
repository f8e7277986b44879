// Package api is the REST client for the TubeMind backend: authentication,
// session CRUD, history retrieval and content processing. Calls are one-shot;
// failures surface once and are never retried here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chitrank123/TubeMind-Pro/internal/chat"
)

// Processing can be slow; the backend chunks and embeds the whole transcript
// on first sight of a video.
const defaultHTTPTimeout = 3 * time.Minute

// AuthError carries the backend-provided detail for rejected registration or
// login attempts, surfaced to the user verbatim.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	return e.Detail
}

// CallError reports any other failed backend call.
type CallError struct {
	Op     string
	Status string
	Body   string
}

func (e *CallError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: backend returned %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend returned %s (%s)", e.Op, e.Status, e.Body)
}

// Credentials identify a logged-in user. The token is the bearer credential
// handed to the stream channel.
type Credentials struct {
	Username string `json:"username"`
	Token    string `json:"access_token"`
}

// SessionRecord is one row of the session list.
type SessionRecord struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	VideoID string `json:"video_id"`
}

// Client talks to one backend instance.
type Client struct {
	base string
	http *http.Client
}

// New builds a client for the given base URL, eg. http://localhost:8000.
// A nil httpClient gets a default with a processing-friendly timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: httpClient,
	}
}

// Register creates an account. Rejections come back as *AuthError with the
// backend's detail message.
func (c *Client) Register(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	return c.postJSON(ctx, "register", "/auth/register", payload, nil, true)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	payload := map[string]string{"username": username, "password": password}
	var creds Credentials
	if err := c.postJSON(ctx, "login", "/auth/login", payload, &creds, true); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Sessions lists the user's stored sessions, newest first.
func (c *Client) Sessions(ctx context.Context, username string) ([]SessionRecord, error) {
	var records []SessionRecord
	path := "/api/sessions/" + url.PathEscape(username)
	if err := c.getJSON(ctx, "list sessions", path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Process asks the backend to ingest the video at url and returns the
// related-content recommendations produced alongside.
func (c *Client) Process(ctx context.Context, videoURL string) (chat.Recommendations, error) {
	payload := map[string]string{"url": videoURL}
	var parsed struct {
		Recommendations chat.Recommendations `json:"recommendations"`
	}
	if err := c.postJSON(ctx, "process content", "/api/process", payload, &parsed, false); err != nil {
		return chat.Recommendations{}, err
	}
	return parsed.Recommendations, nil
}

// CreateSession stores a new conversation scoped to one video and returns
// its id.
func (c *Client) CreateSession(ctx context.Context, videoID, title, username string) (int64, error) {
	payload := map[string]string{
		"video_id": videoID,
		"title":    title,
		"username": username,
	}
	var parsed struct {
		SessionID int64 `json:"session_id"`
	}
	if err := c.postJSON(ctx, "create session", "/api/session/create", payload, &parsed, false); err != nil {
		return 0, err
	}
	return parsed.SessionID, nil
}

// History fetches the full message log for a session in insertion order.
func (c *Client) History(ctx context.Context, sessionID int64) ([]chat.Message, error) {
	var messages []chat.Message
	path := fmt.Sprintf("/api/history/%d", sessionID)
	if err := c.getJSON(ctx, "get history", path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload, out any, auth bool) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, op, out, auth)
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.do(req, op, out, false)
}

func (c *Client) do(req *http.Request, op string, out any, auth bool) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if auth {
			if detail := decodeDetail(body); detail != "" {
				return &AuthError{Detail: detail}
			}
		}
		return &CallError{Op: op, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// decodeDetail extracts the FastAPI-style {"detail": "..."} error message.
func decodeDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Detail
}
