package search

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches any *TimeoutError via errors.Is.
var ErrTimeout = errors.New("match timeout")

// ErrFallbackFailed matches any *FallbackError via errors.Is.
var ErrFallbackFailed = errors.New("fallback matcher failed")

// TimeoutError is returned when the fetch phase exceeds its deadline.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("hybrid match exceeded %dms limit; try simplifying the query", e.Limit.Milliseconds())
}

// Is reports ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap exposes context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// FallbackError is returned when the offline catalog itself fails.
type FallbackError struct {
	Err error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("fallback matcher failed: %v", e.Err)
}

// Is reports ErrFallbackFailed.
func (e *FallbackError) Is(target error) bool {
	return target == ErrFallbackFailed
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}
