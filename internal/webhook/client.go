package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/vocabrelay/internal/memo"
)

const maxResponseBytes = 4 << 20

var ErrInvalidResponse = errors.New("webhook returned a non-JSON body")

// UpstreamError reports a webhook call that completed with a non-2xx status or
// an unusable body. Body holds what the webhook sent back, possibly truncated.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("webhook status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Observer is notified once per webhook call.
type Observer func(action memo.Action, outcome string, elapsed time.Duration)

// Client posts envelopes to a Google Apps Script web app (or anything speaking
// the same {action, data} contract).
type Client struct {
	url      string
	client   *http.Client
	observer Observer
}

// NewClient returns a client for url. A zero timeout means no client-side limit.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: strings.TrimSpace(url),
		// Apps Script answers POSTs with a 302 to the rendered output; the default
		// redirect policy re-issues it as a GET, which is what the redirect expects.
		client: &http.Client{Timeout: timeout},
	}
}

// SetObserver installs a hook used for metrics. Not safe to call concurrently with Send.
func (c *Client) SetObserver(obs Observer) {
	c.observer = obs
}

// Send posts env and returns the webhook's JSON response body verbatim.
func (c *Client) Send(ctx context.Context, env memo.Envelope) (json.RawMessage, error) {
	started := time.Now()
	out, err := c.send(ctx, env)
	if c.observer != nil {
		c.observer(env.Action, outcomeOf(err), time.Since(started))
	}
	return out, err
}

func (c *Client) send(ctx context.Context, env memo.Envelope) (json.RawMessage, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: res.StatusCode, Body: body}
	}
	if !json.Valid(body) {
		return nil, &UpstreamError{StatusCode: res.StatusCode, Body: body, Err: ErrInvalidResponse}
	}
	return json.RawMessage(body), nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		if upErr.Err != nil {
			return "invalid_body"
		}
		return "http_error"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "transport_error"
}
