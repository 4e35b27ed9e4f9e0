package resilience

import (
	"errors"
	"testing"
	"time"
)

// speechGroup builds a two-entry group the way main wires STT providers:
// a remote primary with a local fallback behind it.
func speechGroup(cfg FallbackConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("whisper-base", "whisper-base", cfg)
	fg.AddFallback("whisper-tiny", "whisper-tiny")
	return fg
}

func TestFallbackGroup_PrimaryHandlesCall(t *testing.T) {
	fg := speechGroup(FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	var served string
	err := fg.Execute(func(model string) error {
		served = model
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if served != "whisper-base" {
		t.Fatalf("served by %q, want whisper-base", served)
	}
}

func TestFallbackGroup_FailsOverToNextEntry(t *testing.T) {
	fg := speechGroup(FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	var served string
	err := fg.Execute(func(model string) error {
		if model == "whisper-base" {
			return errBackendDown
		}
		served = model
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if served != "whisper-tiny" {
		t.Fatalf("served by %q, want whisper-tiny", served)
	}
}

func TestFallbackGroup_AllEntriesFail(t *testing.T) {
	fg := speechGroup(FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	err := fg.Execute(func(string) error { return errBackendDown })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_OpenBreakerSkipsPrimary(t *testing.T) {
	fg := speechGroup(FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})

	// Burn through the primary's failure budget; the fallback keeps the
	// group green in the meantime.
	for i := 0; i < 2; i++ {
		err := fg.Execute(func(model string) error {
			if model == "whisper-base" {
				return errBackendDown
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
	}

	// With the primary's circuit open, calls must not touch it at all.
	var served string
	err := fg.Execute(func(model string) error {
		if model == "whisper-base" {
			t.Fatal("primary was called while its circuit is open")
		}
		served = model
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if served != "whisper-tiny" {
		t.Fatalf("served by %q, want whisper-tiny", served)
	}
}

func TestExecuteWithResult_PrimaryResult(t *testing.T) {
	fg := NewFallbackGroup(16000, "native-rate", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("resampled", 8000)

	got, err := ExecuteWithResult(fg, func(rate int) (string, error) {
		if rate == 16000 {
			return "native", nil
		}
		return "resampled", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "native" {
		t.Fatalf("result = %q, want native", got)
	}
}

func TestExecuteWithResult_FailsOver(t *testing.T) {
	fg := NewFallbackGroup(16000, "native-rate", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("resampled", 8000)

	got, err := ExecuteWithResult(fg, func(rate int) (string, error) {
		if rate == 16000 {
			return "", errBackendDown
		}
		return "resampled", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "resampled" {
		t.Fatalf("result = %q, want resampled", got)
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	fg := NewFallbackGroup(16000, "native-rate", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(fg, func(int) (string, error) {
		return "", errBackendDown
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
