// Package sync keeps an in-memory thought collection and the server's
// copy converged: edits are pushed after a debounce window, the server
// is polled for remote changes, and a server response always wins.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"thoughtgraph/domain/thought"
	"thoughtgraph/pkg/common"
	pkgerrors "thoughtgraph/pkg/errors"
)

// Client talks to the thought collection API. All transport goes
// through a circuit breaker so a flapping server degrades to offline
// mode instead of hammering it.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "thought-api",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: cb,
		logger:  logger,
	}
}

// FetchThoughts retrieves the full collection and the server's response
// timestamp.
func (c *Client) FetchThoughts(ctx context.Context) ([]thought.Thought, string, error) {
	var out common.ThoughtsResponse
	err := c.do(ctx, http.MethodGet, "/api/thoughts", nil, &out)
	if err != nil {
		return nil, "", err
	}
	if !out.Success {
		return nil, "", pkgerrors.NewNetworkError("fetch thoughts", fmt.Errorf("server reported failure"))
	}
	thoughts := out.Thoughts
	if thoughts == nil {
		thoughts = []thought.Thought{}
	}
	return thoughts, out.Timestamp, nil
}

// SaveThoughts replaces the server collection wholesale.
func (c *Client) SaveThoughts(ctx context.Context, thoughts []thought.Thought) (int, error) {
	body := struct {
		Thoughts []thought.Thought `json:"thoughts"`
	}{Thoughts: thoughts}

	var out common.SaveResponse
	if err := c.do(ctx, http.MethodPost, "/api/thoughts", body, &out); err != nil {
		return 0, err
	}
	if !out.Success {
		return 0, pkgerrors.NewNetworkError("save thoughts", fmt.Errorf("server reported failure"))
	}
	return out.Count, nil
}

// CheckStatus probes server reachability.
func (c *Client) CheckStatus(ctx context.Context) error {
	var out common.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return pkgerrors.NewNetworkError("check status", fmt.Errorf("server reported failure"))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var reader *bytes.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, pkgerrors.NewInternalError("encode request").WithCause(err)
			}
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, pkgerrors.NewInternalError("build request").WithCause(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, pkgerrors.NewNetworkError(method+" "+path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, pkgerrors.NewNetworkError(method+" "+path,
				fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, pkgerrors.NewNetworkError("decode response", err)
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return pkgerrors.NewUnavailableError("thought-api").WithCause(err)
	}
	return err
}
