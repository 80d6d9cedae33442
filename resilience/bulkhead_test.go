package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "pipeline", MaxConcurrent: 1})
	if b.MaxConcurrent() != 1 {
		t.Fatalf("expected 1 slot, got %d", b.MaxConcurrent())
	}

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	rejected := ""
	b.config.OnReject = func(name string) { rejected = name }
	err := b.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected != "pipeline" {
		t.Errorf("expected OnReject callback, got %q", rejected)
	}
	close(release)
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})

	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			return nil
		})
	}()
	<-started

	if err := b.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("expected second call to wait for the slot, got %v", err)
	}
	if b.InUse() != 0 {
		t.Errorf("expected all slots released, got %d", b.InUse())
	}
}

func TestBulkhead_TimeoutAndContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error { close(started); <-block; return nil })
	}()
	<-started
	defer close(block)

	if err := b.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}

	b.config.MaxWait = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Execute(ctx, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecuteWithResult(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	got, err := ExecuteWithResult(context.Background(), b, func() (float64, error) { return 12.5, nil })
	if err != nil || got != 12.5 {
		t.Errorf("expected 12.5, got (%v, %v)", got, err)
	}
}
