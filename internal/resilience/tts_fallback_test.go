package resilience

import (
	"bytes"
	"context"
	"errors"
	"testing"

	ttsmock "github.com/MrWong99/oratio/pkg/provider/tts/mock"
)

func TestTTSFallback_Synthesize_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Provider{WAV: []byte("primary-wav")}
	secondary := &ttsmock.Provider{WAV: []byte("secondary-wav")}

	fb := NewTTSFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("openai", secondary)

	wav, err := fb.Synthesize(context.Background(), "the cat sat", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(wav, []byte("primary-wav")) {
		t.Fatalf("wav = %q", wav)
	}
	if len(secondary.Calls()) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Calls()))
	}
}

func TestTTSFallback_Synthesize_Failover(t *testing.T) {
	primary := &ttsmock.Provider{Err: errors.New("coqui down")}
	secondary := &ttsmock.Provider{WAV: []byte("secondary-wav")}

	fb := NewTTSFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("openai", secondary)

	wav, err := fb.Synthesize(context.Background(), "the cat sat", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(wav, []byte("secondary-wav")) {
		t.Fatalf("wav = %q", wav)
	}
	if got := secondary.Calls(); len(got) != 1 || got[0].Text != "the cat sat" {
		t.Fatalf("secondary calls = %+v", got)
	}
}

func TestTTSFallback_Synthesize_AllFail(t *testing.T) {
	primary := &ttsmock.Provider{Err: errors.New("coqui down")}
	secondary := &ttsmock.Provider{Err: errors.New("openai down")}

	fb := NewTTSFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("openai", secondary)

	if _, err := fb.Synthesize(context.Background(), "x", "en"); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTTSFallback_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	primary := &ttsmock.Provider{Err: errors.New("coqui down")}
	secondary := &ttsmock.Provider{WAV: []byte("ok")}

	fb := NewTTSFallback(primary, "coqui", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	fb.AddFallback("openai", secondary)

	for range 4 {
		if _, err := fb.Synthesize(context.Background(), "x", "en"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// After MaxFailures the primary's breaker opens and stops being probed.
	if got := len(primary.Calls()); got != 2 {
		t.Fatalf("primary called %d times, want 2", got)
	}
}
