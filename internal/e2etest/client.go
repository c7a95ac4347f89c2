package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/liftcoach/internal/contexthelpers"
)

// Client calls the JSON API as a single user.
type Client struct {
	client *http.Client
	url    string
	userID int
}

// NewClient creates a client for the server at url acting as userID.
func NewClient(url string, userID int) *Client {
	return &Client{
		client: &http.Client{Timeout: time.Minute}, //nolint:exhaustruct // defaults.
		url:    url,
		userID: userID,
	}
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Do sends body as JSON and decodes a successful response into out. Either may be nil. Non-2xx responses return a
// *StatusError.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != 0 {
		req.Header.Set(contexthelpers.UserIDHeader, strconv.Itoa(c.userID))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err = json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, urlPath string, out any) error {
	return c.Do(ctx, http.MethodGet, urlPath, nil, out)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, urlPath string, body any, out any) error {
	return c.Do(ctx, http.MethodPost, urlPath, body, out)
}

// StatusCode returns the status of a *StatusError or zero.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		if err := c.Get(ctx, urlPath, nil); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}
