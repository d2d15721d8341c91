// Package backend talks to the remote store API: the paginated product
// catalog and the order submission endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/metrics"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrTransport marks failures where no HTTP response was received.
	ErrTransport = errors.New("backend unreachable")
)

type Client struct {
	baseURL   string
	mediaBase string
	branchID  int64
	userID    int64
	http      *http.Client
	metrics   *metrics.Metrics
}

type Options struct {
	BaseURL      string
	MediaBaseURL string
	BranchID     int64
	UserID       int64
	Timeout      time.Duration
	HTTPClient   *http.Client
	Metrics      *metrics.Metrics
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	branch := opts.BranchID
	if branch <= 0 {
		branch = 1
	}
	user := opts.UserID
	if user <= 0 {
		user = 1
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		mediaBase: strings.TrimRight(opts.MediaBaseURL, "/"),
		branchID:  branch,
		userID:    user,
		http:      hc,
		metrics:   opts.Metrics,
	}
}

func (c *Client) BranchID() int64 { return c.branchID }

// do sends a request and returns the response; err is ErrTransport-wrapped when
// the server could not be reached (including context cancellation).
func (c *Client) do(ctx context.Context, op, method, url string, body any) (*http.Response, error) {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	var req *http.Request
	var err error
	if rdr != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, rdr)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveBackend(op, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
	return resp, nil
}
