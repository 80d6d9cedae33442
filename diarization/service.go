package diarization

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/diarizer/audio"
	"github.com/kbukum/diarizer/errors"
	"github.com/kbukum/diarizer/logger"
	"github.com/kbukum/diarizer/observability"
	"github.com/kbukum/diarizer/resilience"
	"github.com/kbukum/diarizer/validation"
)

// ServiceConfig wires the optional parts of a Service. Nil fields disable
// the corresponding feature.
type ServiceConfig struct {
	Normalizer audio.Normalizer
	Cache      ResultCache
	Breaker    *resilience.CircuitBreakerConfig
	Bulkhead   *resilience.BulkheadConfig
	// ScratchDir holds the temporary audio files. Empty uses os.TempDir.
	ScratchDir string
	Logger     *logger.Logger
	Metrics    *observability.Metrics
}

// Input is one diarization request.
type Input struct {
	Audio []byte
	// Segments is the raw JSON array from the request; empty means none.
	Segments string
	Hints    SpeakerHints
}

// SpeakerHints are optional constraints forwarded to the model.
type SpeakerHints struct {
	NumSpeakers *int
	MinSpeakers *int
	MaxSpeakers *int
}

// Validate checks that hints are positive and min_speakers does not
// exceed max_speakers. It returns a 400 AppError.
func (h SpeakerHints) Validate() error {
	if err := validation.Validate(h.request()); err != nil {
		return err
	}
	if h.MinSpeakers != nil && h.MaxSpeakers != nil && *h.MinSpeakers > *h.MaxSpeakers {
		return errors.Validation("min_speakers must not exceed max_speakers").WithDetail("field", "min_speakers")
	}
	return nil
}

func (h SpeakerHints) request() Request {
	return Request{NumSpeakers: h.NumSpeakers, MinSpeakers: h.MinSpeakers, MaxSpeakers: h.MaxSpeakers}
}

// Service turns uploaded audio and transcript segments into labelled
// segments.
type Service struct {
	manager    *Manager
	normalizer audio.Normalizer
	cache      ResultCache
	breaker    *resilience.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	scratchDir string
	log        *logger.Logger
	metrics    *observability.Metrics
}

// NewService creates a Service drawing its pipeline from manager.
func NewService(manager *Manager, cfg ServiceConfig) *Service {
	s := &Service{
		manager:    manager,
		normalizer: cfg.Normalizer,
		cache:      cfg.Cache,
		scratchDir: cfg.ScratchDir,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
	}
	if s.normalizer == nil {
		s.normalizer = audio.Nop{}
	}
	if s.log == nil {
		s.log = logger.GetGlobalLogger()
	}
	s.log = s.log.WithComponent("diarization")
	if cfg.Breaker != nil {
		bc := *cfg.Breaker
		if bc.Name == "" {
			bc.Name = "diarization." + manager.Backend()
		}
		if bc.IsFailure == nil {
			bc.IsFailure = IsBackendFailure
		}
		bc.OnStateChange = func(name string, from, to resilience.State) {
			s.log.Warn("Circuit breaker state changed", logger.Fields(
				"breaker", name, "from", from.String(), "to", to.String(),
			))
		}
		s.breaker = resilience.NewCircuitBreaker(bc)
	}
	if cfg.Bulkhead != nil {
		bh := *cfg.Bulkhead
		if bh.Name == "" {
			bh.Name = "diarization." + manager.Backend()
		}
		s.bulkhead = resilience.NewBulkhead(bh)
	}
	return s
}

// Manager returns the pipeline manager.
func (s *Service) Manager() *Manager { return s.manager }

// BreakerStats reports the model circuit breaker, or nil when it is
// disabled.
func (s *Service) BreakerStats() *resilience.BreakerStats {
	if s.breaker == nil {
		return nil
	}
	stats := s.breaker.Stats()
	return &stats
}

// Diarize runs the whole request. Errors are *errors.AppError: invalid
// hints (400), loading (202), unavailable (503) or processing failure (500).
func (s *Service) Diarize(ctx context.Context, in Input) (*Response, error) {
	if err := in.Hints.Validate(); err != nil {
		return nil, err
	}
	pipeline, err := s.manager.Acquire()
	if err != nil {
		return nil, NotReadyToAppError(err)
	}

	if len(in.Audio) == 0 {
		return nil, errors.ProcessingFailed("audio file is empty", nil)
	}
	segments, err := ParseSegments(in.Segments)
	if err != nil {
		return nil, processingFailed(err)
	}

	data := s.normalize(ctx, in.Audio)
	req := in.Hints.request()
	result, err := s.result(ctx, pipeline, data, req)
	if err != nil {
		s.metrics.RecordError(ctx, "diarize", "diarization")
		return nil, processingFailed(err)
	}

	_, span := observability.StartSpan(ctx, observability.SpanMerge,
		attribute.Int(observability.AttrSegments, len(segments)))
	merged := Merge(result, segments)
	speakers := Speakers(merged)
	span.SetAttributes(attribute.Int(observability.AttrSpeakers, len(speakers)))
	observability.EndSpan(span, nil)

	return &Response{Segments: merged, Duration: result.Duration, Speakers: speakers}, nil
}

// normalize never fails: when conversion is not possible the model gets
// the original bytes.
func (s *Service) normalize(ctx context.Context, in []byte) []byte {
	ctx, span := observability.StartSpan(ctx, observability.SpanNormalize,
		attribute.Int(observability.AttrAudioSize, len(in)))
	out, err := s.normalizer.Normalize(ctx, in)
	observability.EndSpan(span, err)

	if err != nil || len(out) == 0 {
		if err == nil {
			err = stderrors.New("normalizer returned no data")
		}
		s.log.WithContext(ctx).Warn("Audio normalization failed, using original audio", logger.Fields(
			"normalizer", s.normalizer.Name(),
			logger.FieldError, err.Error(),
		))
		s.metrics.RecordNormalize(ctx, s.normalizer.Name(), observability.OutcomeFallback)
		return in
	}
	s.metrics.RecordNormalize(ctx, s.normalizer.Name(), observability.OutcomeOK)
	return out
}

// result consults the cache before calling the model.
func (s *Service) result(ctx context.Context, pipeline Pipeline, data []byte, req Request) (*Result, error) {
	if s.cache == nil {
		return s.call(ctx, pipeline, data, req)
	}

	key := CacheKey(data, req)
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithContext(ctx).Warn("Result cache lookup failed", logger.ErrorFields("cache_get", err))
	}
	s.metrics.RecordCacheLookup(ctx, cached != nil)
	if cached != nil {
		return cached, nil
	}

	result, err := s.call(ctx, pipeline, data, req)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, key, result); err != nil {
		s.log.WithContext(ctx).Warn("Result cache store failed", logger.ErrorFields("cache_put", err))
	}
	return result, nil
}

// call stages the audio in a scratch file and invokes the model through
// the bulkhead and circuit breaker.
func (s *Service) call(ctx context.Context, pipeline Pipeline, data []byte, req Request) (*Result, error) {
	backend := s.manager.Backend()
	ctx, span := observability.StartSpan(ctx, observability.SpanDiarize,
		attribute.String(observability.AttrBackend, backend),
		attribute.Int(observability.AttrAudioSize, len(data)),
	)
	start := time.Now()

	var result *Result
	err := audio.WithScratchFile(s.scratchDir, "", data, func(path string) error {
		req.AudioPath = path
		return s.guard(ctx, func() error {
			r, err := invoke(ctx, pipeline, req)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	elapsed := time.Since(start)
	observability.EndSpan(span, err)

	outcome := observability.OutcomeOK
	if err != nil {
		outcome = observability.OutcomeError
		s.log.WithContext(ctx).Error("Diarization failed", logger.Fields(
			logger.FieldBackend, backend,
			logger.FieldDuration, elapsed.Milliseconds(),
			logger.FieldError, err.Error(),
		))
	} else {
		s.log.WithContext(ctx).Debug("Diarization finished", logger.Fields(
			logger.FieldBackend, backend,
			logger.FieldDuration, elapsed.Milliseconds(),
			"turns", len(result.Turns),
		))
	}
	s.metrics.RecordDiarize(ctx, backend, outcome, elapsed)
	return result, err
}

func (s *Service) guard(ctx context.Context, fn func() error) error {
	run := fn
	if s.breaker != nil {
		run = func() error {
			return s.breaker.Execute(func() error {
				err := fn()
				if err != nil && ctx.Err() != nil {
					return &requestEndedError{err: err}
				}
				return err
			})
		}
	}
	if s.bulkhead != nil {
		return s.bulkhead.Execute(ctx, run)
	}
	return run()
}

// IsBackendFailure reports whether err says something about the model
// host rather than about one request. Rejected input, cancellation and
// requests whose own context ended are not backend failures.
func IsBackendFailure(err error) bool {
	if err == nil {
		return false
	}
	var ended *requestEndedError
	switch {
	case stderrors.As(err, &ended):
		return false
	case stderrors.Is(err, ErrInputRejected), stderrors.Is(err, context.Canceled):
		return false
	}
	return true
}

// requestEndedError is a failure observed after the caller's context was
// done.
type requestEndedError struct{ err error }

func (e *requestEndedError) Error() string { return e.err.Error() }
func (e *requestEndedError) Unwrap() error { return e.err }

func invoke(ctx context.Context, pipeline Pipeline, req Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("diarization panicked: %v", r)
		}
	}()
	result, err = pipeline.Diarize(ctx, req)
	if err == nil && result == nil {
		err = stderrors.New("backend returned no result")
	}
	return result, err
}

// NotReadyToAppError maps a NotReadyError to the HTTP-facing error: 202
// while loading, 503 otherwise. Other errors become processing failures.
func NotReadyToAppError(err error) *errors.AppError {
	var nr *NotReadyError
	if !stderrors.As(err, &nr) {
		return processingFailed(err)
	}
	if nr.Reason == ReasonLoading {
		return errors.PipelineLoading(nr.Message).WithCause(err)
	}
	return errors.PipelineUnavailable(string(nr.Reason), nr.Message).WithCause(err)
}

// processingFailed keeps the message of validation errors and otherwise
// reports the error text, as clients rely on it to diagnose bad input.
func processingFailed(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return errors.ProcessingFailed(appErr.Message, err).WithDetails(appErr.Details)
	}
	return errors.ProcessingFailed(err.Error(), err)
}
