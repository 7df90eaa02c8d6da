package espn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tlowery/cutline/internal/api"
	"github.com/tlowery/cutline/internal/config"
)

const (
	// DefaultBaseURL is the public read API. Tests point BaseURL at a
	// local server instead.
	DefaultBaseURL = "https://lm-api-reads.fantasy.espn.com/apis/v3/games/ffl"

	sourceName = "espn"
)

type Client struct {
	BaseURL    string
	Config     config.ESPNAPI
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

func NewClient(cfg config.ESPNAPI, logger *slog.Logger) *Client {
	settings := gobreaker.Settings{
		Name: "espn-api",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
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
		Config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

func (c *Client) Get(ctx context.Context, endpoint string, params, headers map[string]string, result any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.get(ctx, endpoint, params, headers, result)
	})
	if err == nil {
		return nil
	}

	var reqErr *api.RequestError
	var decErr *api.DecodeError
	if errors.As(err, &reqErr) || errors.As(err, &decErr) {
		return err
	}
	return &api.RequestError{Source: sourceName, Endpoint: endpoint, Err: err}
}

func (c *Client) get(ctx context.Context, endpoint string, params, headers map[string]string, result any) error {
	url := fmt.Sprintf("%s%s", c.BaseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	q := req.URL.Query()
	for key, value := range params {
		values := strings.Split(value, ",")
		for _, v := range values {
			q.Add(key, strings.TrimSpace(v))
		}
	}
	req.URL.RawQuery = q.Encode()

	c.setCookies(req)

	for key, value := range headers {
		req.Header.Set(key, value)
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

func (c *Client) setCookies(req *http.Request) {
	cookie := fmt.Sprintf("SWID=%s; espn_s2=%s", c.Config.SWID, c.Config.ESPNS2)
	req.Header.Set("Cookie", cookie)
}
