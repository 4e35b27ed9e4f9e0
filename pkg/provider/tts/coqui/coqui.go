// Package coqui provides a tts.Provider backed by a local Coqui TTS server
// (ghcr.io/coqui-ai/tts-cpu) via its GET /api/tts REST endpoint. Each
// Synthesize call is one HTTP request returning a complete WAV clip.
//
// Typical usage:
//
//	p := coqui.New("http://localhost:5002",
//	    coqui.WithSpeaker("p273"),
//	    coqui.WithTimeout(15*time.Second),
//	)
//	wav, err := p.Synthesize(ctx, "यह एक सरल परीक्षण है", "hi")
package coqui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/oratio/pkg/provider/tts"
)

const (
	apiTTSEndpoint = "/api/tts"
	defaultTimeout = 30 * time.Second
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithSpeaker sets the speaker_id query parameter for multi-speaker models.
// Leave unset for single-speaker models.
func WithSpeaker(id string) Option {
	return func(p *Provider) { p.speaker = id }
}

// WithTimeout sets the per-request HTTP timeout for calls to the TTS server.
// Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements tts.Provider against a standard Coqui TTS server.
type Provider struct {
	serverURL  string
	speaker    string
	httpClient *http.Client
}

// New creates a Provider targeting the Coqui server at serverURL (e.g.,
// "http://localhost:5002"). A trailing slash is stripped automatically.
func New(serverURL string, opts ...Option) *Provider {
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize implements tts.Provider by issuing a single GET /api/tts
// request and returning the WAV response body unchanged.
func (p *Provider) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	params := url.Values{}
	params.Set("text", text)
	if p.speaker != "" {
		params.Set("speaker_id", p.speaker)
	}
	if language != "" {
		params.Set("language_id", language)
	}

	reqURL := p.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	return wav, nil
}
