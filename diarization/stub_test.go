package diarization

import (
	"context"
	"sync"
	"sync/atomic"
)

// stubLoader counts constructions and blocks each one until release is
// closed (when set).
type stubLoader struct {
	loads    atomic.Int32
	release  chan struct{}
	started  chan struct{}
	startOne sync.Once
	err      error
	panicMsg string
	pipeline Pipeline
}

func newStubLoader(p Pipeline) *stubLoader {
	return &stubLoader{pipeline: p, started: make(chan struct{})}
}

func (l *stubLoader) Name() string                     { return "stub" }
func (l *stubLoader) IsAvailable(context.Context) bool { return true }

func (l *stubLoader) Load(ctx context.Context, _, _ string) (Pipeline, error) {
	l.loads.Add(1)
	l.startOne.Do(func() { close(l.started) })
	if l.release != nil {
		select {
		case <-l.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.panicMsg != "" {
		panic(l.panicMsg)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.pipeline, nil
}

type stubPipeline struct {
	mu     sync.Mutex
	calls  int
	paths  []string
	result *Result
	err    error
	closed bool
	fn     func(req Request) (*Result, error)
}

func (p *stubPipeline) Diarize(_ context.Context, req Request) (*Result, error) {
	p.mu.Lock()
	p.calls++
	p.paths = append(p.paths, req.AudioPath)
	fn := p.fn
	p.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return p.result, p.err
}

func (p *stubPipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *stubPipeline) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
