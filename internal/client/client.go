package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rental/internal/auth"
)

// Error is a typed failure from a collaborator call. Status carries the
// upstream HTTP status so callers can propagate the collaborator's failure
// category instead of masking it as a generic 500.
type Error struct {
	Op     string
	Status int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: upstream returned %d", e.Op, e.Status)
}

// NotFound reports whether the collaborator said the entity does not exist.
func (e *Error) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// httpClient is the shared plumbing for the typed collaborator clients: one
// JSON request/response per call, a bounded per-call timeout, and the
// caller's bearer credential forwarded unchanged from context.
type httpClient struct {
	base    string
	client  *http.Client
	timeout time.Duration
}

func newHTTPClient(baseURL string, timeout time.Duration) httpClient {
	return httpClient{
		base:    baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// doJSON performs a single request. A nil out discards the response body.
// Non-2xx responses become *Error; transport failures are returned as-is.
func (c httpClient) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, ok := auth.FromContext(ctx); ok && id.Token != "" {
		req.Header.Set("Authorization", "Bearer "+id.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &Error{Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
