package component

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/diarizer/logger"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func newTestRegistry() *Registry {
	return NewRegistry(logger.Nop())
}

func TestNewRegistryNilLogger(t *testing.T) {
	if r := NewRegistry(nil); r == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register(&mockComponent{name: "redis"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "redis"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&mockComponent{name: "pipeline"})

	got := r.Get("pipeline")
	if got == nil || got.Name() != "pipeline" {
		t.Fatalf("expected registered component, got %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAllOrder(t *testing.T) {
	r := newTestRegistry()
	var order []string
	_ = r.Register(&mockComponent{name: "redis", startOrder: &order})
	_ = r.Register(&mockComponent{name: "pipeline", startOrder: &order})
	_ = r.Register(&mockComponent{name: "http-server", startOrder: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	want := "redis,pipeline,http-server"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected start order %s, got %s", want, got)
	}
}

func TestStartAllErrorStopsEarly(t *testing.T) {
	r := newTestRegistry()
	var order []string
	_ = r.Register(&mockComponent{name: "redis", startErr: fmt.Errorf("connection refused"), startOrder: &order})
	_ = r.Register(&mockComponent{name: "pipeline", startOrder: &order})

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected start error naming redis, got %v", err)
	}
	if len(order) != 1 {
		t.Errorf("expected start to halt after failure, got %v", order)
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := newTestRegistry()
	var order []string
	_ = r.Register(&mockComponent{name: "redis", stopOrder: &order})
	_ = r.Register(&mockComponent{name: "pipeline", stopOrder: &order})
	_ = r.Register(&mockComponent{name: "http-server", stopOrder: &order})

	_ = r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	want := "http-server,pipeline,redis"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected stop order %s, got %s", want, got)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := newTestRegistry()
	var order []string
	_ = r.Register(&mockComponent{name: "redis", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected no stops for unstarted components, got %v", order)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&mockComponent{name: "redis", stopErr: fmt.Errorf("close failed")})
	_ = r.Register(&mockComponent{name: "pipeline", stopErr: fmt.Errorf("cancel failed")})

	_ = r.StartAll(context.Background())
	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected error from StopAll")
	}
	for _, name := range []string{"redis", "pipeline"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected joined error to mention %s, got %v", name, err)
		}
	}
}

func TestHealthAll(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&mockComponent{name: "redis", health: Health{Name: "redis", Status: StatusHealthy}})
	_ = r.Register(&mockComponent{name: "pipeline", health: Health{Name: "pipeline", Status: StatusDegraded, Message: "loading"}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Status != StatusDegraded || results[1].Message != "loading" {
		t.Errorf("unexpected pipeline health %+v", results[1])
	}
}
