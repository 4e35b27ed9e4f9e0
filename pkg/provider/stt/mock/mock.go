// Package mock provides a test double for the stt package interfaces.
//
// Use Provider to feed a controlled transcription Result into the assessment
// pipeline and to inspect the Signal and Config the caller passed in.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/oratio/pkg/audio"
	"github.com/MrWong99/oratio/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Sig is the audio clip passed to Transcribe.
	Sig audio.Signal
	// Cfg is the Config passed to Transcribe.
	Cfg stt.Config
}

// Provider is a mock implementation of stt.Provider. The zero value returns
// an empty Result from every call.
type Provider struct {
	mu sync.Mutex

	// Result is returned from Transcribe when Err is nil.
	Result stt.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns Result, Err.
func (p *Provider) Transcribe(_ context.Context, sig audio.Signal, cfg stt.Config) (stt.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Sig: sig, Cfg: cfg})
	if p.Err != nil {
		return stt.Result{}, p.Err
	}
	return p.Result, nil
}
