package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/diarizer/component"
	"github.com/kbukum/diarizer/logger"
)

// newTestClient creates a Client backed by miniredis.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

type cachedResult struct {
	Duration float64  `json:"duration"`
	Speakers []string `json:"speakers,omitempty"`
}

func TestTypedStore_SaveAndLoad(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedResult](client, "diarizer:result")
	ctx := context.Background()

	if err := store.Save(ctx, "abc", &cachedResult{Duration: 12.5, Speakers: []string{"A", "B"}}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.Duration != 12.5 || len(got.Speakers) != 2 {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestTypedStore_LoadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedResult](client, "diarizer:result")

	got, err := store.Load(context.Background(), "nonexistent")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for a missing key, got (%+v, %v)", got, err)
	}
}

func TestTypedStore_Delete(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedResult](client, "r")
	ctx := context.Background()

	_ = store.Save(ctx, "k1", &cachedResult{Duration: 1}, 0)
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := store.Load(ctx, "k1"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[cachedResult](client, "r")
	ctx := context.Background()

	if err := store.Save(ctx, "k1", &cachedResult{Duration: 1}, 2*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got, err := store.Load(ctx, "k1"); err != nil || got == nil {
		t.Fatalf("expected value before TTL, got %v, err %v", got, err)
	}

	mini.FastForward(3 * time.Second)

	if got, err := store.Load(ctx, "k1"); err != nil || got != nil {
		t.Fatalf("expected nil after TTL expiration, got %+v, err %v", got, err)
	}
}

func TestTypedStore_KeyPrefix(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	_ = NewTypedStore[cachedResult](client, "diarizer:result").Save(ctx, "k1", &cachedResult{Duration: 3}, 0)
	_ = NewTypedStore[cachedResult](client, "").Save(ctx, "bare", &cachedResult{Duration: 4}, 0)

	if raw, err := mini.Get("diarizer:result:k1"); err != nil || raw == "" {
		t.Fatalf("expected prefixed key, got %q err %v", raw, err)
	}
	if raw, err := mini.Get("bare"); err != nil || raw == "" {
		t.Fatalf("expected bare key, got %q err %v", raw, err)
	}
}

func TestTypedStore_CorruptValue(t *testing.T) {
	client, mini := newTestClient(t)
	_ = mini.Set("r:bad", "not json")

	_, err := NewTypedStore[cachedResult](client, "r").Load(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestClient_GetMissing(t *testing.T) {
	client, _ := newTestClient(t)
	if _, err := client.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_CloseTwice(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}

func TestNew_Disabled(t *testing.T) {
	if _, err := New(Config{}, logger.Nop()); err == nil {
		t.Fatal("expected error for disabled config")
	}
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if cfg.Addr != "localhost:6379" || cfg.PoolSize != 10 || cfg.DialTimeout != 5*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.DB = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative db")
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	comp := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if comp.Client() == nil {
		t.Fatal("expected client after start")
	}
	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %+v", h)
	}

	mini.Close()
	if h := comp.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after server loss, got %+v", h)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestComponent_StartUnreachable(t *testing.T) {
	comp := NewComponent(Config{Enabled: true, Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: 1}, logger.Nop())
	if err := comp.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail for an unreachable server")
	}
}
