// Package snapshot pulls the authoritative match state over REST and
// posts role changes back.
package snapshot

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

	"github.com/DoyleJ11/cricket-live/internal/cricket"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/DoyleJ11/cricket-live/pkg/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsRetryable reports whether trying again could help: server errors,
// throttling and transport failures are, client errors and cancellation
// are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	var de *decodeError
	return !errors.As(err, &de)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

type Options struct {
	BaseURL         string
	Token           string
	HTTPClient      *http.Client
	MaxRetries      uint64
	InitialInterval time.Duration
	Logger          *zap.Logger
	Metrics         metrics.Metrics
}

type Client struct {
	opts Options
	http *http.Client
	log  *zap.Logger
}

func New(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 250 * time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{opts: opts, http: hc, log: logging.OrNop(opts.Logger)}
}

// FetchSnapshot pulls the current state of a match, retrying transient
// failures with exponential backoff.
func (c *Client) FetchSnapshot(ctx context.Context, matchID string) (itypes.Snapshot, error) {
	start := time.Now()
	var snap itypes.Snapshot
	err := c.retry(ctx, "fetch snapshot", func() error {
		return c.do(ctx, "fetch snapshot", http.MethodGet, types.SnapshotPath(matchID), nil, &snap)
	})
	if err != nil {
		if c.opts.Metrics != nil {
			c.opts.Metrics.IncSnapshotFailures()
		}
		return itypes.Snapshot{}, err
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveSnapshotFetch(time.Since(start).Seconds())
	}
	if snap.MatchID == "" {
		snap.MatchID = matchID
	}
	return snap, nil
}

// UpdateRoles sets striker, non-striker and bowler through the REST
// endpoint and returns the sequence number of the resulting delta. It is
// not retried: a timed-out request may still have been applied.
func (c *Client) UpdateRoles(ctx context.Context, matchID string, roles cricket.Roles) (int64, error) {
	body, err := json.Marshal(itypes.RolesUpdate(roles))
	if err != nil {
		return 0, fmt.Errorf("encode roles: %w", err)
	}
	var out struct {
		Seq int64 `json:"seq"`
	}
	if err := c.do(ctx, "update roles", http.MethodPost, types.RolesPath(matchID), body, &out); err != nil {
		return 0, err
	}
	return out.Seq, nil
}

func (c *Client) retry(ctx context.Context, op string, f func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.opts.InitialInterval
	eb.Reset()
	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.opts.MaxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := f()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		c.log.Warn("retrying", zap.String("op", op), zap.Duration("in", wait), zap.Error(err))
	})
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode}
		var em itypes.ErrorMessage
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&em); err == nil {
			se.Message = em.Error
		}
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w", op, &decodeError{err: err})
	}
	return nil
}
