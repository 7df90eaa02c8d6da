// Package api holds the error vocabulary shared by the source adapters.
// Callers treat any of these as "no data from this source this cycle".
package api

import (
	"errors"
	"fmt"
)

// RequestError reports a transport failure or an unexpected status from an
// upstream platform. Status is zero when the request never completed.
type RequestError struct {
	Source   string
	Endpoint string
	Status   int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s returned status %d", e.Source, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: request to %s failed: %v", e.Source, e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// DecodeError reports a response body that did not match the expected shape.
type DecodeError struct {
	Source   string
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decoding %s response: %v", e.Source, e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrStatsTimeout is returned when the weekly player-statistics feed lags
// behind roster data past the configured wait budget.
var ErrStatsTimeout = errors.New("player stats feed not ready")
