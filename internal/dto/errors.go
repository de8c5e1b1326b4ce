package dto

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidParam = errors.New("invalid parameter")
)

// FeedUnavailableError means the upstream feed could not be reached or
// answered with a non-2xx status. Callers may retry later.
type FeedUnavailableError struct {
	StatusCode int
	Err        error
}

func (e *FeedUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("market feed unavailable: status %d", e.StatusCode)
	}
	return fmt.Sprintf("market feed unavailable: %v", e.Err)
}

func (e *FeedUnavailableError) Unwrap() error {
	return e.Err
}

// FeedFormatError means the feed answered but its payload is unusable.
type FeedFormatError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FeedFormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid market feed: %s", e.Reason)
	}
	return fmt.Sprintf("invalid market feed: %s: %s", e.Field, e.Reason)
}

func (e *FeedFormatError) Unwrap() error {
	return e.Err
}

// InsufficientHistoryError is returned by trend analysis when fewer than two
// distinct history dates exist.
type InsufficientHistoryError struct {
	DistinctDates int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("not enough data yet: need 2 distinct history dates, have %d", e.DistinctDates)
}
