package pyannote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/util"
)

type fakeHost struct {
	loads    atomic.Int32
	released atomic.Bool
	lastForm map[string]string
}

func (h *fakeHost) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /pipeline", func(w http.ResponseWriter, r *http.Request) {
		h.loads.Add(1)
		if r.Header.Get("Authorization") != "Bearer hf_good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid token"}`))
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != DefaultModel {
			t.Errorf("unexpected model %q", req.Model)
		}
		_, _ = w.Write([]byte(`{"pipeline_id":"p-1"}`))
	})
	mux.HandleFunc("POST /pipelines/p-1/diarize", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		f, _, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("audio part: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		_ = f.Close()
		h.lastForm = map[string]string{"audio": string(data), "num_speakers": r.FormValue("num_speakers")}
		_, _ = w.Write([]byte(`{"duration":9,"turns":[{"start":0,"end":5,"speaker":"SPEAKER_00"},{"start":4,"end":9,"speaker":"SPEAKER_01"}]}`))
	})
	mux.HandleFunc("DELETE /pipelines/p-1", func(w http.ResponseWriter, _ *http.Request) {
		h.released.Store(true)
	})
	return mux
}

func newLoader(t *testing.T, host *fakeHost) *Loader {
	t.Helper()
	srv := httptest.NewServer(host.handler(t))
	t.Cleanup(srv.Close)
	l, err := NewLoader(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLoader_LoadAndDiarize(t *testing.T) {
	host := &fakeHost{}
	l := newLoader(t, host)

	if !l.IsAvailable(context.Background()) {
		t.Error("expected host to be available")
	}
	p, err := l.Load(context.Background(), "", "hf_good")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := p.Diarize(context.Background(), diarization.Request{AudioPath: path, NumSpeakers: util.Ptr(2)})
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if res.Duration != 9 || len(res.Turns) != 2 || res.Turns[1].Speaker != "SPEAKER_01" || res.Turns[1].Start != 4 {
		t.Errorf("unexpected result %+v", res)
	}
	if host.lastForm["audio"] != "RIFFdata" || host.lastForm["num_speakers"] != "2" {
		t.Errorf("unexpected upload %v", host.lastForm)
	}

	if err := p.(*Pipeline).Close(); err != nil || !host.released.Load() {
		t.Errorf("expected pipeline release, err=%v", err)
	}
}

func TestLoader_BadCredential(t *testing.T) {
	l := newLoader(t, &fakeHost{})
	_, err := l.Load(context.Background(), "", "hf_bad")
	if err == nil || !strings.Contains(err.Error(), "invalid token") || !strings.Contains(err.Error(), "rejected the token") {
		t.Errorf("expected auth failure with host message, got %v", err)
	}
}

func TestPipeline_DiarizeErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		rejected bool
	}{
		{"host failure", http.StatusInternalServerError, `{"detail":"CUDA out of memory"}`, "host failed to diarize", false},
		{"undecodable audio", http.StatusUnprocessableEntity, `{"detail":"could not decode audio"}`, "rejected the audio", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)
			l, err := NewLoader(Config{BaseURL: srv.URL})
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), "a.wav")
			if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
				t.Fatal(err)
			}

			p := &Pipeline{id: "p-9", client: l.client}
			_, err = p.Diarize(context.Background(), diarization.Request{AudioPath: path})
			if err == nil || !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected %q, got %v", tc.wantMsg, err)
			}
			if got := errors.Is(err, diarization.ErrInputRejected); got != tc.rejected {
				t.Errorf("input rejected = %v, want %v", got, tc.rejected)
			}
			if got := diarization.IsBackendFailure(err); got == tc.rejected {
				t.Errorf("backend failure = %v, want %v", got, !tc.rejected)
			}
		})
	}
}

func TestLoader_Unreachable(t *testing.T) {
	l, err := NewLoader(Config{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatal(err)
	}
	if l.IsAvailable(context.Background()) {
		t.Error("expected unreachable host to be unavailable")
	}
	if _, err := l.Load(context.Background(), "", "hf_good"); err == nil {
		t.Error("expected load error")
	}
}

func TestFactory(t *testing.T) {
	loader, err := Factory()(map[string]any{"base_url": "http://model-host:8388", "timeout": "90s"})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	l := loader.(*Loader)
	if l.cfg.BaseURL != "http://model-host:8388" || l.cfg.Timeout.Seconds() != 90 {
		t.Errorf("unexpected config %+v", l.cfg)
	}

	if _, err := Factory()(map[string]any{"base_uri": "typo"}); err == nil {
		t.Error("expected unknown option to be rejected")
	}
	if _, err := Factory()(map[string]any{"base_url": "not a url"}); err == nil {
		t.Error("expected invalid url to be rejected")
	}
	if _, err := Factory()(nil); err != nil {
		t.Errorf("expected defaults to be valid, got %v", err)
	}
}

func TestManagerWithPyannote(t *testing.T) {
	host := &fakeHost{}
	m := diarization.NewManager(newLoader(t, host), diarization.ManagerConfig{Credential: "hf_good"})
	if _, err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := m.Acquire(); err != nil {
		t.Fatal(err)
	}
	if host.loads.Load() != 1 {
		t.Errorf("expected one load on the host, got %d", host.loads.Load())
	}
}
