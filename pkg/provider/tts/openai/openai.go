// Package openai provides a tts.Provider backed by the OpenAI speech API.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/oratio/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Provider implements tts.Provider using OpenAI's audio speech endpoint.
// The language parameter of Synthesize is ignored — OpenAI voices are
// multilingual and infer the language from the input text.
type Provider struct {
	client oai.Client
	model  oai.SpeechModel
	voice  oai.AudioSpeechNewParamsVoice
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	voice   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithVoice selects the voice preset (e.g., "alloy", "nova"). Default "alloy".
func WithVoice(voice string) Option {
	return func(c *config) { c.voice = voice }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a new OpenAI TTS Provider. model may be empty, defaulting
// to tts-1.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{voice: "alloy"}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	m := oai.SpeechModel(model)
	if model == "" {
		m = oai.SpeechModelTTS1
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  m,
		voice:  oai.AudioSpeechNewParamsVoice(cfg.voice),
	}, nil
}

// Synthesize implements tts.Provider. The response is requested in WAV
// format so it can be decoded and cached without transcoding.
func (p *Provider) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	res, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          p.model,
		Input:          text,
		Voice:          p.voice,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize speech: %w", err)
	}
	defer res.Body.Close()

	wav, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read speech response: %w", err)
	}
	return wav, nil
}
