package poller

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

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/jobs"
	"github.com/dataquerypro/dataquery/internal/schema"
)

// Client talks to the introspection HTTP API. It satisfies Fetcher.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the server at baseURL
// (e.g. "http://localhost:8080"). A nil hc uses a client with a 10s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Start submits desc and returns the ID of the new job.
func (c *Client) Start(ctx context.Context, desc introspect.ConnectionDescriptor) (string, error) {
	body, err := json.Marshal(desc)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "encode descriptor", err)
	}

	var out struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/introspection", body, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", errs.New(errs.ErrKindQueryFailed, "server returned no job id")
	}
	return out.JobID, nil
}

// FetchStatus returns the job snapshot. The result is left undecoded as a
// json.RawMessage so callers can unmarshal it into their own type.
func (c *Client) FetchStatus(ctx context.Context, jobID string) (jobs.Snapshot, error) {
	var wire struct {
		jobs.Snapshot
		Result json.RawMessage `json:"result,omitempty"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/introspection/"+url.PathEscape(jobID), nil, &wire); err != nil {
		return jobs.Snapshot{}, err
	}

	snap := wire.Snapshot
	snap.Result = nil
	if len(wire.Result) > 0 {
		snap.Result = wire.Result
	}
	return snap, nil
}

// Accept stores reconciled as the baseline of its connection.
func (c *Client) Accept(ctx context.Context, reconciled schema.Schema) error {
	body, err := json.Marshal(reconciled)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode schema", err)
	}
	path := "/api/connections/" + url.PathEscape(reconciled.ConnectionID) + "/schema"
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// apiError is the error body written by the server.
type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errs.Wrap(errs.ErrKindTimeout, method+" "+path, err)
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var ae apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&ae)
		msg := ae.Message
		if msg == "" {
			msg = ae.Code
		}
		if msg == "" {
			msg = resp.Status
		}
		return errs.New(kindForStatus(resp.StatusCode), fmt.Sprintf("%s %s: %s", method, path, msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "decode response", err)
	}
	return nil
}

func kindForStatus(code int) errs.ErrKind {
	switch code {
	case http.StatusNotFound:
		return errs.ErrKindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errs.ErrKindInvalidInput
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.ErrKindPermissionDenied
	case http.StatusConflict:
		return errs.ErrKindConflict
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return errs.ErrKindTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
