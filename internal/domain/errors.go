package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record, draft or category does not exist for the operator.
	ErrNotFound = errors.New("not found")
	// ErrMalformedArticle marks rewriter output missing required fields.
	ErrMalformedArticle = errors.New("malformed article")
	// ErrNoDestinations is returned when a publish request targets neither site nor channel.
	ErrNoDestinations = errors.New("no destinations selected")
	// ErrRunInProgress is returned when the operator already has a pipeline run in flight.
	ErrRunInProgress = errors.New("pipeline run already in progress")
	// ErrUnknownSetting rejects setting keys outside the recognized set.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrInvalidSetting rejects values that do not parse or fall out of range.
	ErrInvalidSetting = errors.New("invalid setting value")
	// ErrUnknownPeriod rejects statistics periods other than today, week, month and all.
	ErrUnknownPeriod = errors.New("unknown period")
)

// DestinationError wraps a failure of one destination call.
type DestinationError struct {
	Destination Destination
	Op          string
	Cause       error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Destination, e.Op, e.Cause)
}

func (e *DestinationError) Unwrap() error { return e.Cause }

// HTTPStatusError carries a non-2xx response from a remote API.
type HTTPStatusError struct {
	Service string
	Status  string
	Body    string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned %s", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned %s: %s", e.Service, e.Status, e.Body)
}
