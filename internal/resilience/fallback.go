package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] either failed
// or had an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig carries the circuit breaker settings applied to each entry in
// a [FallbackGroup]. Every entry gets its own breaker built from this config.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary provider with alternatives of the same type.
// Calls go to the first entry whose breaker admits them; a failure or an open
// circuit moves on to the next entry in registration order.
//
// FallbackGroup is safe for concurrent use once assembled. AddFallback is not
// safe to call concurrently with Execute.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup starts a group with primary as its first entry. Register
// alternatives with [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.add(primaryName, primary)
	return fg
}

// AddFallback appends an alternative provider. Entries are tried in the order
// they were added, primary first.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.add(name, fallback)
}

func (fg *FallbackGroup[T]) add(name string, value T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each entry in order until one succeeds. Entries with
// an open breaker are skipped. When every entry fails, the returned error
// wraps [ErrAllFailed] together with the last failure.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.entries {
		entry := &fg.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		logEntryFailure(entry.name, err)
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a value,
// such as a transcription or an embedding vector. It is a free function
// because methods cannot introduce the result type parameter.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var lastErr error
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(entry.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		logEntryFailure(entry.name, err)
	}
	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

func logEntryFailure(name string, err error) {
	if errors.Is(err, ErrCircuitOpen) {
		slog.Debug("skipping provider (circuit open)", "provider", name)
		return
	}
	slog.Warn("provider failed, trying next", "provider", name, "error", err)
}
