// Package refaudio caches synthesized reference renditions of target texts
// on disk, keyed by language and normalised text. Synthesis is the slowest
// collaborator in an assessment, and the same passages are read over and
// over, so a hit avoids a round trip entirely.
package refaudio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/oratio/internal/textnorm"
	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/tts"
)

// Cache synthesizes reference audio on demand and keeps the WAV bytes on
// disk. Concurrent requests for the same text are collapsed into a single
// synthesis call.
type Cache struct {
	tts   tts.Provider
	dir   string
	group singleflight.Group
}

// New creates a Cache storing WAV files under dir, creating it if needed.
func New(provider tts.Provider, dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("refaudio: create cache dir: %w", err)
	}
	return &Cache{tts: provider, dir: dir}, nil
}

// WAV returns the complete reference WAV for text in the given language,
// synthesizing and caching it on first request.
func (c *Cache) WAV(ctx context.Context, text, language string) ([]byte, error) {
	key := Key(text, language)
	path := filepath.Join(c.dir, key+".wav")

	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight may have landed while we queued.
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}

		data, err := c.tts.Synthesize(ctx, text, language)
		if err != nil {
			return nil, fmt.Errorf("refaudio: synthesize: %w", err)
		}
		if err := writeAtomic(path, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Reference decodes the cached WAV into a Signal. It implements the
// reference source consumed by the pronunciation scorer.
func (c *Cache) Reference(ctx context.Context, text, language string) (audio.Signal, error) {
	data, err := c.WAV(ctx, text, language)
	if err != nil {
		return audio.Signal{}, err
	}
	sig, err := audio.DecodeWAV(data)
	if err != nil {
		return audio.Signal{}, fmt.Errorf("refaudio: decode cached wav: %w", err)
	}
	return sig, nil
}

// Key derives the stable cache key for a text and language. The text is
// normalised first so "The cat." and "the cat" share a rendition.
func Key(text, language string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + textnorm.Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// writeAtomic writes data to path via a temp file and rename, so readers
// never observe a partial WAV.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ref-*.tmp")
	if err != nil {
		return fmt.Errorf("refaudio: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("refaudio: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("refaudio: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("refaudio: publish %s: %w", filepath.Base(path), err)
	}
	return nil
}
