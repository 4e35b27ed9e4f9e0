package refaudio_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/MrWong99/oratio/internal/refaudio"
	"github.com/MrWong99/oratio/pkg/audio"
	ttsmock "github.com/MrWong99/oratio/pkg/provider/tts/mock"
)

func testWAV(t *testing.T) []byte {
	t.Helper()
	sig := audio.Signal{Data: make([]byte, 3200), SampleRate: 16000}
	return audio.EncodeWAV(sig)
}

func TestCache_SynthesizesOnceAndServesFromDisk(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{WAV: testWAV(t)}
	cache, err := refaudio.New(provider, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for range 3 {
		data, err := cache.WAV(context.Background(), "The cat sat.", "en")
		if err != nil {
			t.Fatalf("WAV: %v", err)
		}
		if len(data) == 0 {
			t.Fatal("empty WAV")
		}
	}

	if got := len(provider.Calls()); got != 1 {
		t.Errorf("Synthesize calls = %d, want 1", got)
	}
}

func TestCache_KeyNormalisation(t *testing.T) {
	t.Parallel()

	// Case and punctuation differences share a rendition; languages do not.
	if refaudio.Key("The cat.", "en") != refaudio.Key("the cat", "en") {
		t.Error("normalised variants should share a key")
	}
	if refaudio.Key("the cat", "en") == refaudio.Key("the cat", "hi") {
		t.Error("languages should not share a key")
	}
}

func TestCache_ConcurrentRequestsCollapse(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{WAV: testWAV(t)}
	cache, err := refaudio.New(provider, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.WAV(context.Background(), "hello world", "en"); err != nil {
				t.Errorf("WAV: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(provider.Calls()); got != 1 {
		t.Errorf("Synthesize calls = %d, want 1", got)
	}
}

func TestCache_Reference(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{WAV: testWAV(t)}
	cache, err := refaudio.New(provider, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sig, err := cache.Reference(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	if sig.Empty() || sig.SampleRate != 16000 {
		t.Errorf("sig = %d bytes @ %d Hz", len(sig.Data), sig.SampleRate)
	}
}

func TestCache_SynthesisFailureNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("tts down")
	provider := &ttsmock.Provider{Err: boom}
	dir := t.TempDir()
	cache, err := refaudio.New(provider, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := cache.WAV(context.Background(), "hello", "en"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped tts error", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".wav" {
			t.Errorf("failed synthesis left %s behind", e.Name())
		}
	}

	// A later retry hits the provider again rather than a poisoned entry.
	provider.Err = nil
	provider.WAV = testWAV(t)
	if _, err := cache.WAV(context.Background(), "hello", "en"); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
