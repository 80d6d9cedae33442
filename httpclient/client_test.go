package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/diarizer/resilience"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_JSONBodyAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pipeline" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf_abc" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		if got := r.Header.Get("X-Service"); got != "diarizer" {
			t.Errorf("default header missing, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"model":"m"}` {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pipeline_id":"p1"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{
		BaseURL: srv.URL + "/",
		Auth:    BearerAuth("hf_abc"),
		Headers: map[string]string{"X-Service": "diarizer"},
	})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/pipeline", Body: map[string]string{"model": "m"}})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	var out struct {
		PipelineID string `json:"pipeline_id"`
	}
	if err := resp.JSON(&out); err != nil || out.PipelineID != "p1" {
		t.Errorf("unexpected response %+v %v", out, err)
	}
	if !resp.IsSuccess() {
		t.Error("expected success")
	}
}

func TestClient_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "RIFF" || hdr.Filename != `a"b.wav` {
			t.Errorf("unexpected file %q %q", data, hdr.Filename)
		}
		if hdr.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("unexpected part content type %q", hdr.Header.Get("Content-Type"))
		}
		if r.FormValue("num_speakers") != "2" {
			t.Errorf("missing field, got %q", r.FormValue("num_speakers"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/diarize",
		Body: &MultipartBody{
			Fields: map[string]string{"num_speakers": "2"},
			Files:  []FileField{{FieldName: "audio", FileName: `a"b.wav`, ContentType: "audio/wav", Data: []byte("RIFF")}},
		},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, ErrCodeAuth, false},
		{http.StatusNotFound, ErrCodeNotFound, false},
		{http.StatusTooManyRequests, ErrCodeRateLimit, true},
		{http.StatusBadRequest, ErrCodeValidation, false},
		{http.StatusServiceUnavailable, ErrCodeServer, true},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"status":"error","message":"nope"}`))
			}))
			defer srv.Close()

			resp, err := newTestClient(t, Config{BaseURL: srv.URL}).Do(context.Background(), Request{Path: "/x"})
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if e.Code != tc.code || e.Retryable != tc.retryable || IsRetryable(err) != tc.retryable {
				t.Errorf("unexpected classification %+v", e)
			}
			if resp == nil || resp.StatusCode != tc.status || !strings.Contains(e.Message, "nope") {
				t.Errorf("expected response and body snippet, got %+v %q", resp, e.Message)
			}
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	c := newTestClient(t, Config{BaseURL: srv.URL, Retry: retry})
	resp, err := c.Do(context.Background(), Request{Path: "/"})
	if err != nil || string(resp.Body) != "ok" {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL, Retry: &resilience.RetryConfig{MaxAttempts: 5, RetryIf: IsRetryable}})
	if _, err := c.Do(context.Background(), Request{Path: "/"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestClient_ConnectionError(t *testing.T) {
	c := newTestClient(t, Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.Do(context.Background(), Request{Path: "/"})
	if !IsConnection(err) || !IsRetryable(err) {
		t.Errorf("expected retryable connection error, got %v", err)
	}
}

func TestHeaderAuth(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://x", nil)
	HeaderAuth("X-API-Key", "k").apply(req)
	if req.Header.Get("X-API-Key") != "k" || req.Header.Get("Authorization") != "" {
		t.Errorf("unexpected headers %v", req.Header)
	}
	var none *AuthConfig
	none.apply(req)
}
