// Command oratio is the main entry point for the Oratio reading-assessment server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/oratio/internal/acoustic"
	"github.com/MrWong99/oratio/internal/assess"
	"github.com/MrWong99/oratio/internal/config"
	"github.com/MrWong99/oratio/internal/health"
	pghistory "github.com/MrWong99/oratio/internal/history/postgres"
	"github.com/MrWong99/oratio/internal/observe"
	"github.com/MrWong99/oratio/internal/refaudio"
	"github.com/MrWong99/oratio/internal/resilience"
	"github.com/MrWong99/oratio/internal/server"
	"github.com/MrWong99/oratio/pkg/provider/embeddings"
	embeddingslocal "github.com/MrWong99/oratio/pkg/provider/embeddings/local"
	embeddingsmock "github.com/MrWong99/oratio/pkg/provider/embeddings/mock"
	"github.com/MrWong99/oratio/pkg/provider/stt"
	sttmock "github.com/MrWong99/oratio/pkg/provider/stt/mock"
	"github.com/MrWong99/oratio/pkg/provider/stt/whisper"
	"github.com/MrWong99/oratio/pkg/provider/tts"
	"github.com/MrWong99/oratio/pkg/provider/tts/coqui"
	ttsmock "github.com/MrWong99/oratio/pkg/provider/tts/mock"
	ttsopenai "github.com/MrWong99/oratio/pkg/provider/tts/openai"
)

// version is injected at build time via -ldflags.
var version = "dev"

const (
	defaultListenAddr = ":8080"
	defaultCacheDir   = "cache/reference"
	shutdownTimeout   = 15 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "oratio: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "oratio: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	slog.Info("oratio starting",
		"version", version,
		"config", *configPath,
		"listen_addr", listenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "oratio",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg, observe.DefaultMetrics())
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer providers.close()

	// ── History store (optional) ──────────────────────────────────────────────
	var store *pghistory.Store
	if cfg.History.PostgresDSN != "" {
		dims := cfg.History.EmbeddingDimensions
		if dims <= 0 && providers.embeddings != nil {
			dims = providers.embeddings.Dimensions()
		}
		store, err = pghistory.NewStore(ctx, cfg.History.PostgresDSN, dims)
		if err != nil {
			slog.Error("failed to connect to history store", "err", err)
			return 1
		}
		defer store.Close()
		slog.Info("history store connected", "embedding_dimensions", dims)
	}

	// ── Reference audio cache ─────────────────────────────────────────────────
	var refs *refaudio.Cache
	if providers.tts != nil {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = defaultCacheDir
		}
		refs, err = refaudio.New(providers.tts, dir)
		if err != nil {
			slog.Error("failed to initialise reference cache", "err", err)
			return 1
		}
		slog.Info("reference cache ready", "dir", dir)
	}

	// ── Assessment pipeline ───────────────────────────────────────────────────
	pol := cfg.Scoring.Policy()
	pipelineOpts := []assess.PipelineOption{
		assess.WithPolicy(pol),
	}
	if providers.embeddings != nil && refs != nil {
		pronOpts := []acoustic.PronouncerOption{}
		if store != nil {
			pronOpts = append(pronOpts, acoustic.WithEmbeddingStore(store))
		}
		pron := acoustic.NewPronouncer(providers.embeddings, refs, pronOpts...)
		pipelineOpts = append(pipelineOpts, assess.WithPronouncer(pron))
		slog.Info("pronunciation scoring enabled", "model", providers.embeddings.ModelID())
	}
	pipeline := assess.NewPipeline(
		providers.stt,
		acoustic.NewClarity(pol.VolumeThreshold),
		pipelineOpts...,
	)

	// ── HTTP server ───────────────────────────────────────────────────────────
	serverOpts := []server.Option{
		server.WithHealth(health.New(readinessCheckers(store)...)),
	}
	if refs != nil {
		serverOpts = append(serverOpts, server.WithReferenceCache(refs))
	}
	if store != nil {
		serverOpts = append(serverOpts, server.WithHistory(store))
		if providers.embeddings != nil {
			serverOpts = append(serverOpts, server.WithEmbedder(providers.embeddings))
		}
	}
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: server.New(pipeline, serverOpts...).Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		if cfg.Server.TLS != nil {
			serveErr <- srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			serveErr <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-serveErr:
		slog.Error("server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// providerSet holds the instantiated providers the pipeline runs on.
type providerSet struct {
	stt        stt.Provider
	tts        tts.Provider
	embeddings embeddings.Provider

	closers []func() error
}

// close releases provider resources (e.g., a loaded whisper model).
func (p *providerSet) close() {
	for _, fn := range p.closers {
		if err := fn(); err != nil {
			slog.Warn("provider close error", "err", err)
		}
	}
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	})

	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if speaker := optString(entry.Options, "speaker"); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		return coqui.New(entry.BaseURL, opts...), nil
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []ttsopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, ttsopenai.WithVoice(voice))
		}
		return ttsopenai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{}, nil
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("local", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []embeddingslocal.Option
		if dims := optInt(entry.Options, "dimensions"); dims > 0 {
			opts = append(opts, embeddingslocal.WithDimensions(dims))
		}
		return embeddingslocal.New(entry.BaseURL, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("mock", func(config.ProviderEntry) (embeddings.Provider, error) {
		return &embeddingsmock.Provider{}, nil
	})
}

// buildProviders instantiates the providers named in cfg. STT is mandatory;
// TTS and embeddings are optional and merely narrow the feature set when
// absent. Every concrete provider is wrapped in the metrics decorator under
// its configured name; entries with fallbacks are additionally wrapped in
// circuit-breaking failover groups.
func buildProviders(cfg *config.Config, reg *config.Registry, met *observe.Metrics) (*providerSet, error) {
	ps := &providerSet{}

	created, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	if closer, ok := created.(interface{ Close() error }); ok {
		ps.closers = append(ps.closers, closer.Close)
	}
	primary := observe.InstrumentSTT(created, cfg.Providers.STT.Name, met)
	ps.stt = primary
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if len(cfg.Providers.STT.Fallbacks) > 0 {
		fb := resilience.NewSTTFallback(primary, cfg.Providers.STT.Name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.STT.Fallbacks {
			p, err := reg.CreateSTT(entry)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
			}
			if closer, ok := p.(interface{ Close() error }); ok {
				ps.closers = append(ps.closers, closer.Close)
			}
			fb.AddFallback(entry.Name, observe.InstrumentSTT(p, entry.Name, met))
			slog.Info("provider created", "kind", "stt", "name", entry.Name, "role", "fallback")
		}
		ps.stt = fb
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		created, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		primary := observe.InstrumentTTS(created, name, met)
		ps.tts = primary
		slog.Info("provider created", "kind", "tts", "name", name)

		if len(cfg.Providers.TTS.Fallbacks) > 0 {
			fb := resilience.NewTTSFallback(primary, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.TTS.Fallbacks {
				p, err := reg.CreateTTS(entry)
				if err != nil {
					return nil, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
				}
				fb.AddFallback(entry.Name, observe.InstrumentTTS(p, entry.Name, met))
				slog.Info("provider created", "kind", "tts", "name", entry.Name, "role", "fallback")
			}
			ps.tts = fb
		}
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		created, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		primary := observe.InstrumentEmbeddings(created, name, met)
		ps.embeddings = primary
		slog.Info("provider created", "kind", "embeddings", "name", name, "model", primary.ModelID())

		if len(cfg.Providers.Embeddings.Fallbacks) > 0 {
			fb := resilience.NewEmbeddingsFallback(primary, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.Embeddings.Fallbacks {
				p, err := reg.CreateEmbeddings(entry)
				if err != nil {
					return nil, fmt.Errorf("create embeddings fallback %q: %w", entry.Name, err)
				}
				fb.AddFallback(entry.Name, observe.InstrumentEmbeddings(p, entry.Name, met))
				slog.Info("provider created", "kind", "embeddings", "name", entry.Name, "role", "fallback")
			}
			ps.embeddings = fb
		}
	}

	return ps, nil
}

// readinessCheckers builds the /readyz checker list. Only dependencies that
// can actually fail at runtime get a checker.
func readinessCheckers(store *pghistory.Store) []health.Checker {
	var checkers []health.Checker
	if store != nil {
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: store.Ping,
		})
	}
	return checkers
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// optInt extracts an integer value from a provider Options map. YAML decodes
// unadorned numbers as int.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	v, ok := opts[key]
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}
