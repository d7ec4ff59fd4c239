package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
)

var findProcessFunc = ps.FindProcess

// executablePrefix matches "gia" and "gia.exe".
const executablePrefix = "gia"

// Client talks to a running instance through its control API.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient builds a client for a known address and secret.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Dial reads the lockfile at lockPath and checks its process is alive.
func Dial(lockPath string) (*Client, error) {
	lock, err := ReadLock(lockPath)
	if err != nil {
		return nil, err
	}

	process, err := findProcessFunc(lock.PID)
	if err != nil || process == nil {
		return nil, fmt.Errorf("process %d: %w", lock.PID, ErrNotRunning)
	}
	if !strings.HasPrefix(strings.ToLower(process.Executable()), executablePrefix) {
		return nil, fmt.Errorf("process with PID %d is %s: %w", lock.PID, process.Executable(), ErrNotRunning)
	}

	return NewClient(fmt.Sprintf("http://127.0.0.1:%d", lock.Port), lock.Secret), nil
}

// Status fetches the scheduler status.
func (client *Client) Status(ctx context.Context) (StatusView, error) {
	var status StatusView
	err := client.do(ctx, http.MethodGet, "/status", nil, &status)
	return status, err
}

// Reschedule re-arms the cadence.
func (client *Client) Reschedule(ctx context.Context) (ResultView, error) {
	return client.command(ctx, "/reschedule", nil)
}

// Pause stops reminders until Resume.
func (client *Client) Pause(ctx context.Context) (ResultView, error) {
	return client.command(ctx, "/pause", nil)
}

// Resume restarts reminders.
func (client *Client) Resume(ctx context.Context) (ResultView, error) {
	return client.command(ctx, "/resume", nil)
}

// Exit pauses and marks the session exited.
func (client *Client) Exit(ctx context.Context) (ResultView, error) {
	return client.command(ctx, "/exit", nil)
}

// Snooze delays the next break. Zero uses the configured default.
func (client *Client) Snooze(ctx context.Context, minutes int) (ResultView, error) {
	return client.command(ctx, "/snooze", snoozeRequest{Minutes: minutes})
}

// Break shows a short break now.
func (client *Client) Break(ctx context.Context) (ResultView, error) {
	return client.command(ctx, "/break", nil)
}

// Disable pauses reminders for the given number of hours.
func (client *Client) Disable(ctx context.Context, hours int) (ResultView, error) {
	return client.command(ctx, "/disable", disableRequest{Hours: hours})
}

// Demo starts the demo sequence.
func (client *Client) Demo(ctx context.Context) (ResultView, error) {
	return client.command(ctx, "/demo", nil)
}

func (client *Client) command(ctx context.Context, path string, body any) (ResultView, error) {
	var result ResultView
	err := client.do(ctx, http.MethodPost, path, body, &result)
	return result, err
}

func (client *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(SecretHeader, client.secret)

	res, err := client.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer res.Body.Close()

	envelope := struct {
		Data  json.RawMessage `json:"data"`
		Error *APIError       `json:"error"`
	}{}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", path, res.StatusCode, err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("call %s: %w", path, ErrUnauthorized)
	}
	if envelope.Error != nil {
		return fmt.Errorf("call %s: %s", path, envelope.Error.Message)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: unexpected status %d", path, res.StatusCode)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}
