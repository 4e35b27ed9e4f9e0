package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"whisper", "mock"},
	"tts":        {"coqui", "openai", "mock"},
	"embeddings": {"local", "mock"},
}

// fluency/composite variants accepted by the scoring block. Kept as strings
// here so config stays decoupled from the scoring package's internals.
var (
	validFluencyVariants   = []string{"comfort_curve", "accuracy_blend"}
	validCompositeVariants = []string{"weighted_components", "text_pronunciation"}
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Providers
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required; nothing can be assessed without transcription"))
	}
	validateProviderNames("stt", cfg.Providers.STT)
	validateProviderNames("tts", cfg.Providers.TTS)
	validateProviderNames("embeddings", cfg.Providers.Embeddings)
	if len(cfg.Providers.STT.Fallbacks) > 0 && cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.fallbacks requires providers.stt.name as the primary"))
	}

	if cfg.Providers.Embeddings.Name != "" && cfg.Providers.TTS.Name == "" {
		slog.Warn("providers.embeddings is configured without providers.tts; pronunciation scoring needs reference audio and will be disabled")
	}

	// Scoring
	errs = append(errs, validateScoring(cfg.Scoring)...)

	// History
	if cfg.History.PostgresDSN != "" && cfg.Providers.Embeddings.Name != "" && cfg.History.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("history.embedding_dimensions is required when both history.postgres_dsn and providers.embeddings are set"))
	}
	if cfg.History.PostgresDSN == "" {
		slog.Warn("history.postgres_dsn is empty; assessments will not be persisted")
	}

	return errors.Join(errs...)
}

// validateScoring checks ratio ranges and variant names in the scoring block.
func validateScoring(s ScoringConfig) []error {
	var errs []error

	checkRatio := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("scoring.%s %.2f is out of range [0, 1]", name, v))
		}
	}
	checkRatio("correct_ratio", s.CorrectRatio)
	checkRatio("mispronunciation_ratio", s.MispronunciationRatio)

	if s.CorrectRatio != 0 && s.MispronunciationRatio != 0 && s.MispronunciationRatio >= s.CorrectRatio {
		errs = append(errs, fmt.Errorf("scoring.mispronunciation_ratio %.2f must be below scoring.correct_ratio %.2f", s.MispronunciationRatio, s.CorrectRatio))
	}

	checkPositive := func(name string, v float64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("scoring.%s %.2f must not be negative", name, v))
		}
	}
	checkPositive("block_threshold_seconds", s.BlockThresholdSeconds)
	checkPositive("target_wpm", s.TargetWPM)
	checkPositive("rush_wpm", s.RushWPM)
	checkPositive("volume_threshold", s.VolumeThreshold)

	if s.Fluency != "" && !slices.Contains(validFluencyVariants, s.Fluency) {
		errs = append(errs, fmt.Errorf("scoring.fluency %q is invalid; valid values: %v", s.Fluency, validFluencyVariants))
	}
	if s.Composite != "" && !slices.Contains(validCompositeVariants, s.Composite) {
		errs = append(errs, fmt.Errorf("scoring.composite %q is invalid; valid values: %v", s.Composite, validCompositeVariants))
	}

	return errs
}

// validateProviderNames warns about unrecognised names in entry and its
// fallbacks.
func validateProviderNames(kind string, entry ProviderEntry) {
	validateProviderName(kind, entry.Name)
	for _, fb := range entry.Fallbacks {
		validateProviderName(kind, fb.Name)
	}
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
