// Package local provides an embeddings provider backed by a local acoustic
// embedding inference server (e.g., a SpeechBrain ECAPA or wav2vec2 model
// exposed over HTTP).
//
// The server is expected to accept POST /api/embed with a JSON body holding
// the model name and a base64-encoded 16-bit mono PCM WAV clip, and to reply
// with the embedding vector:
//
//	{"model": "ecapa-voxceleb", "audio": "<base64 wav>"}
//	  → {"embedding": [0.013, -0.27, ...]}
package local

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/embeddings"
)

// DefaultBaseURL is the default base URL for a locally running embedding
// server.
const DefaultBaseURL = "http://localhost:8570"

// Ensure Provider implements the embeddings.Provider interface at compile time.
var _ embeddings.Provider = (*Provider)(nil)

// Provider implements embeddings.Provider against a local inference server.
//
// Dimension resolution happens in this order:
//  1. Value supplied via WithDimensions option (highest priority).
//  2. Auto-detection: a single probe embed of a short silent clip is issued
//     on the first Dimensions call and the length of the returned vector is
//     cached for the lifetime of the Provider.
//
// Provider is safe for concurrent use.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client

	dimensions int
	detectOnce sync.Once
	detectErr  error
}

// config holds optional configuration collected from functional options.
type config struct {
	timeout    time.Duration
	dimensions int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithTimeout sets a per-request HTTP timeout on the underlying HTTP client.
// A zero or negative value means no timeout (the default).
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithDimensions pre-sets the embedding dimension, avoiding the probe
// request that Dimensions() would otherwise issue on first call.
func WithDimensions(dims int) Option {
	return func(c *config) { c.dimensions = dims }
}

// New constructs a new Provider.
//
// baseURL is the base URL of the embedding server; if empty, DefaultBaseURL
// is used. A trailing slash is stripped automatically. model must not be
// empty.
func New(baseURL string, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("local embeddings: model must not be empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	httpClient := &http.Client{}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	return &Provider{
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		dimensions: cfg.dimensions,
	}, nil
}

// embedRequest is the JSON request body sent to the /api/embed endpoint.
type embedRequest struct {
	Model string `json:"model"`
	Audio string `json:"audio"`
}

// embedResponse is the JSON response body returned by /api/embed.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements embeddings.Provider. The clip is wrapped in a WAV
// container and base64-encoded for transport.
func (p *Provider) Embed(ctx context.Context, sig audio.Signal) ([]float32, error) {
	if sig.Empty() {
		return nil, fmt.Errorf("local embeddings: empty audio clip")
	}

	body, err := json.Marshal(embedRequest{
		Model: p.model,
		Audio: base64.StdEncoding.EncodeToString(audio.EncodeWAV(sig)),
	})
	if err != nil {
		return nil, fmt.Errorf("local embeddings: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("local embeddings: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local embeddings: POST /api/embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("local embeddings: server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("local embeddings: decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("local embeddings: server returned empty embedding")
	}
	return out.Embedding, nil
}

// Dimensions implements embeddings.Provider. For unknown models the first
// call issues a probe embed of a 100 ms silent clip and caches the result.
func (p *Provider) Dimensions() int {
	if p.dimensions > 0 {
		return p.dimensions
	}
	p.detectOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		probe := audio.Signal{Data: make([]byte, 3200), SampleRate: 16000}
		vec, err := p.Embed(ctx, probe)
		if err != nil {
			p.detectErr = err
			return
		}
		p.dimensions = len(vec)
	})
	return p.dimensions
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.model
}
