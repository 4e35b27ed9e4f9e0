package coqui_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/oratio/pkg/provider/tts/coqui"
)

func TestSynthesize(t *testing.T) {
	t.Parallel()

	wantBody := []byte("RIFF-fake-wav")
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tts" {
			t.Errorf("path = %q, want /api/tts", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		w.Write(wantBody)
	}))
	defer srv.Close()

	p := coqui.New(srv.URL+"/", coqui.WithSpeaker("p273"))
	wav, err := p.Synthesize(context.Background(), "the quick brown fox", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != string(wantBody) {
		t.Errorf("body = %q, want %q", wav, wantBody)
	}
	if got := gotQuery["text"]; len(got) != 1 || got[0] != "the quick brown fox" {
		t.Errorf("text param = %v", got)
	}
	if got := gotQuery["speaker_id"]; len(got) != 1 || got[0] != "p273" {
		t.Errorf("speaker_id param = %v", got)
	}
	if got := gotQuery["language_id"]; len(got) != 1 || got[0] != "en" {
		t.Errorf("language_id param = %v", got)
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := coqui.New(srv.URL)
	if _, err := p.Synthesize(context.Background(), "hello", ""); err == nil {
		t.Fatal("Synthesize: want error on 500, got nil")
	}
}
