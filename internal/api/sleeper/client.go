package sleeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tlowery/cutline/internal/api"
)

const (
	// DefaultBaseURL is the public Sleeper API. Tests point BaseURL at a
	// local server instead.
	DefaultBaseURL = "https://api.sleeper.app/v1"

	sourceName = "sleeper"
)

type Client struct {
	BaseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	settings := gobreaker.Settings{
		Name: "sleeper-api",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		// A 404 is a data miss (stats feed not posted yet, stale league
		// id), not a service failure.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var reqErr *api.RequestError
			return errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound
		},
	}

	return &Client{
		BaseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

func (c *Client) Get(ctx context.Context, endpoint string, result any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.get(ctx, endpoint, result)
	})
	if err == nil {
		return nil
	}

	var reqErr *api.RequestError
	var decErr *api.DecodeError
	if errors.As(err, &reqErr) || errors.As(err, &decErr) {
		return err
	}
	// Breaker open or request construction failure.
	return &api.RequestError{Source: sourceName, Endpoint: endpoint, Err: err}
}

func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	url := fmt.Sprintf("%s%s", c.BaseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &api.RequestError{Source: sourceName, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &api.RequestError{Source: sourceName, Endpoint: endpoint, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &api.DecodeError{Source: sourceName, Endpoint: endpoint, Err: err}
	}

	return nil
}
