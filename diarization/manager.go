package diarization

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/diarizer/component"
	"github.com/kbukum/diarizer/logger"
	"github.com/kbukum/diarizer/observability"
)

// State is the lifecycle state of the model slot.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason explains why Acquire did not return a pipeline.
type Reason string

const (
	ReasonLoading           Reason = "currently_loading"
	ReasonMissingCredential Reason = "missing_credential"
	ReasonLoadFailed        Reason = "load_failed"
)

const (
	messageLoading           = "Pipeline is loading. Retry shortly."
	messageMissingCredential = "Pipeline not loaded. Set HF_TOKEN."
)

// NotReadyError is returned by Acquire when no pipeline is available.
type NotReadyError struct {
	Reason  Reason
	Message string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("pipeline not ready (%s): %s", e.Reason, e.Message)
}

// Retryable reports whether the caller should poll again.
func (e *NotReadyError) Retryable() bool { return e.Reason == ReasonLoading }

// ErrNotResettable is returned by Reset outside of a load failure.
var ErrNotResettable = errors.New("pipeline is not in a resettable state")

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Model string
	// Credential is passed to the backend. Empty fails the slot without
	// calling the backend.
	Credential string
	// Preload starts construction from Start instead of the first Acquire.
	Preload bool
	// LoadTimeout bounds construction. Zero means no bound.
	LoadTimeout time.Duration
}

// Snapshot is a point-in-time view of the slot.
type Snapshot struct {
	State        State         `json:"state"`
	Reason       Reason        `json:"reason,omitempty"`
	Message      string        `json:"message,omitempty"`
	Backend      string        `json:"backend"`
	Model        string        `json:"model,omitempty"`
	LoadedAt     time.Time     `json:"loaded_at,omitzero"`
	LoadDuration time.Duration `json:"-"`
}

// ManagerOption configures optional Manager dependencies.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log *logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithMetrics records load attempts on metrics.
func WithMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

var _ component.Component = (*Manager)(nil)

// Manager owns the single model handle. Acquire never blocks on
// construction: the first caller starts it in the background and every
// caller gets a NotReadyError until it finishes. A handle, once built, is
// kept for the life of the process. A failed load stays failed until Reset.
type Manager struct {
	loader  Loader
	cfg     ManagerConfig
	log     *logger.Logger
	metrics *observability.Metrics

	// ctx outlives requests; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	state        State
	reason       Reason
	message      string
	handle       Pipeline
	loadedAt     time.Time
	loadDuration time.Duration
	// done is closed when the current load publishes its outcome.
	done chan struct{}
}

// NewManager creates a Manager in the unloaded state.
func NewManager(loader Loader, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		loader: loader,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		state:  StateUnloaded,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.GetGlobalLogger()
	}
	m.log = m.log.WithComponent("pipeline")
	return m
}

// Acquire returns the ready pipeline or a *NotReadyError. It starts
// construction when the slot is unloaded.
func (m *Manager) Acquire() (Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateReady:
		return m.handle, nil
	case StateUnloaded:
		m.beginLoadLocked()
	}
	return nil, &NotReadyError{Reason: m.reason, Message: m.message}
}

func (m *Manager) beginLoadLocked() {
	if strings.TrimSpace(m.cfg.Credential) == "" {
		m.state, m.reason, m.message = StateFailed, ReasonMissingCredential, messageMissingCredential
		m.log.Warn("HF_TOKEN not set; diarization is disabled", logger.Fields(
			logger.FieldBackend, m.loader.Name(),
		))
		return
	}

	m.state, m.reason, m.message = StateLoading, ReasonLoading, messageLoading
	done := make(chan struct{})
	m.done = done
	m.wg.Add(1)
	go m.load(done)
}

func (m *Manager) load(done chan struct{}) {
	defer m.wg.Done()
	defer close(done)

	ctx := m.ctx
	if m.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.LoadTimeout)
		defer cancel()
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineLoad,
		attribute.String(observability.AttrBackend, m.loader.Name()),
		attribute.String(observability.AttrModel, m.cfg.Model),
	)

	m.log.Info("Loading diarization pipeline", logger.Fields(
		logger.FieldBackend, m.loader.Name(),
		logger.FieldModel, m.cfg.Model,
	))
	start := time.Now()
	handle, err := m.construct(ctx)
	elapsed := time.Since(start)
	observability.EndSpan(span, err)

	m.mu.Lock()
	if err != nil {
		m.state, m.reason = StateFailed, ReasonLoadFailed
		m.message = fmt.Sprintf("Pipeline failed to load: %v", err)
	} else {
		m.state, m.reason, m.message = StateReady, "", ""
		m.handle = handle
		m.loadedAt = time.Now()
		m.loadDuration = elapsed
	}
	m.mu.Unlock()

	fields := logger.Fields(
		logger.FieldBackend, m.loader.Name(),
		logger.FieldModel, m.cfg.Model,
		logger.FieldDuration, elapsed.Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		m.log.Error("Diarization pipeline failed to load", fields)
		m.metrics.RecordPipelineLoad(context.Background(), m.loader.Name(), observability.OutcomeError, elapsed)
		return
	}
	m.log.Info("Diarization pipeline loaded", fields)
	m.metrics.RecordPipelineLoad(context.Background(), m.loader.Name(), observability.OutcomeOK, elapsed)
}

// construct calls the backend, turning a panic into an error so a broken
// backend cannot leave the slot stuck in loading.
func (m *Manager) construct(ctx context.Context) (p Pipeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("pipeline construction panicked: %v", r)
		}
	}()
	p, err = m.loader.Load(ctx, m.cfg.Model, m.cfg.Credential)
	if err == nil && p == nil {
		err = errors.New("backend returned no pipeline")
	}
	return p, err
}

// Wait blocks until the slot leaves the loading state or ctx ends, then
// behaves like Acquire. It is meant for offline tools; request handlers
// use Acquire.
func (m *Manager) Wait(ctx context.Context) (Pipeline, error) {
	for {
		p, err := m.Acquire()
		var nr *NotReadyError
		if err == nil || !errors.As(err, &nr) || nr.Reason != ReasonLoading {
			return p, err
		}

		m.mu.Lock()
		done := m.done
		m.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Reset returns a slot that failed to load to the unloaded state so the
// next Acquire tries again. A missing credential cannot be reset.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateFailed || m.reason != ReasonLoadFailed {
		return fmt.Errorf("%w (state %s)", ErrNotResettable, m.state)
	}
	m.state, m.reason, m.message = StateUnloaded, "", ""
	m.log.Info("Diarization pipeline reset")
	return nil
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:        m.state,
		Reason:       m.reason,
		Message:      m.message,
		Backend:      m.loader.Name(),
		Model:        m.cfg.Model,
		LoadedAt:     m.loadedAt,
		LoadDuration: m.loadDuration,
	}
}

// Backend is the loader's name.
func (m *Manager) Backend() string { return m.loader.Name() }

func (m *Manager) Name() string { return "pipeline" }

// Start begins construction when preloading is enabled. It does not wait
// for it to finish.
func (m *Manager) Start(_ context.Context) error {
	if m.cfg.Preload {
		// The outcome surfaces through Acquire and Health.
		_, _ = m.Acquire()
	}
	return nil
}

// Stop cancels an in-flight load, waits for it within ctx and closes the
// handle if it holds resources.
func (m *Manager) Stop(ctx context.Context) error {
	m.cancel()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("waiting for pipeline load: %w", ctx.Err())
	}

	m.mu.Lock()
	handle := m.handle
	m.mu.Unlock()
	if c, ok := handle.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Health is healthy once the pipeline is ready, degraded while it is not
// yet loaded and unhealthy after a failure.
func (m *Manager) Health(_ context.Context) component.Health {
	s := m.Snapshot()
	h := component.Health{
		Name:   m.Name(),
		Status: component.StatusDegraded,
		Details: map[string]any{
			"state":   s.State.String(),
			"backend": s.Backend,
			"model":   s.Model,
		},
	}
	switch s.State {
	case StateReady:
		h.Status = component.StatusHealthy
		h.Details["load_ms"] = s.LoadDuration.Milliseconds()
	case StateFailed:
		h.Status = component.StatusUnhealthy
		h.Message = s.Message
		h.Details["reason"] = string(s.Reason)
	default:
		h.Message = "pipeline not loaded yet"
	}
	return h
}
