package commands

import (
	"context"
	"fmt"

	"github.com/kbukum/diarizer/api"
	"github.com/kbukum/diarizer/audio"
	"github.com/kbukum/diarizer/bootstrap"
	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/diarization/command"
	"github.com/kbukum/diarizer/diarization/pyannote"
	"github.com/kbukum/diarizer/logger"
	"github.com/kbukum/diarizer/observability"
	"github.com/kbukum/diarizer/redis"
	"github.com/kbukum/diarizer/server"
	"github.com/kbukum/diarizer/util"
)

func init() {
	diarization.RegisterBackend(pyannote.BackendName, pyannote.Factory())
	diarization.RegisterBackend(command.BackendName, command.Factory())
}

// newNormalizer builds the normalization chain: the pure-Go resampler for
// WAV, then ffmpeg for everything else when it is installed.
func newNormalizer(cfg AudioConfig, log *logger.Logger) audio.Normalizer {
	if cfg.SkipNormalize {
		return audio.Nop{}
	}
	chain := audio.Chain{audio.NewResampler()}
	ff, err := audio.NewFFmpeg(cfg.FFmpeg)
	if err != nil {
		log.Warn("ffmpeg not available, only WAV uploads will be normalized", logger.ErrorFields("ffmpeg", err))
		return chain
	}
	return append(chain, ff)
}

// newManager creates the backend and the pipeline manager.
func newManager(cfg PipelineConfig, log *logger.Logger, metrics *observability.Metrics) (*diarization.Manager, error) {
	loader, err := diarization.NewLoader(cfg.Backend, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("pipeline backend: %w", err)
	}
	log.Info("Diarization backend configured", logger.Fields(
		logger.FieldBackend, cfg.Backend,
		logger.FieldModel, cfg.Model,
		"token", util.MaskSecret(cfg.Token, 3),
		"preload", cfg.Preload,
	))
	return diarization.NewManager(loader, diarization.ManagerConfig{
		Model:       cfg.Model,
		Credential:  cfg.Token,
		Preload:     cfg.Preload,
		LoadTimeout: cfg.LoadTimeout,
	}, diarization.WithLogger(log), diarization.WithMetrics(metrics)), nil
}

// newService wires the normalizer, cache and guards around manager.
func newService(cfg *Config, manager *diarization.Manager, cache diarization.ResultCache, log *logger.Logger, metrics *observability.Metrics) *diarization.Service {
	sc := diarization.ServiceConfig{
		Normalizer: newNormalizer(cfg.Audio, log),
		Cache:      cache,
		ScratchDir: cfg.Audio.ScratchDir,
		Logger:     log,
		Metrics:    metrics,
	}
	if cfg.Pipeline.Breaker.Enabled {
		bc := cfg.Pipeline.Breaker.CircuitBreakerConfig
		sc.Breaker = &bc
	}
	if cfg.Pipeline.Bulkhead.Enabled {
		bh := cfg.Pipeline.Bulkhead.BulkheadConfig
		sc.Bulkhead = &bh
	}
	return diarization.NewService(manager, sc)
}

// newApp assembles the service: redis (when caching), the pipeline
// manager and the HTTP server, in start order.
func newApp(ctx context.Context, cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := app.Logger

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	app.OnStop(shutdownTelemetry)
	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
	if err != nil {
		return nil, err
	}

	var cache diarization.ResultCache
	if cfg.Redis.Enabled {
		rc := redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(rc); err != nil {
			return nil, err
		}
		if cfg.Cache.Enabled {
			cache = diarization.NewRedisCache(rc, cfg.Cache.Prefix, cfg.Cache.TTL)
		}
	}

	manager, err := newManager(cfg.Pipeline, log, metrics)
	if err != nil {
		return nil, err
	}
	if err := app.RegisterComponent(manager); err != nil {
		return nil, err
	}
	service := newService(cfg, manager, cache, log, metrics)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(metrics)
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
	api.NewHandler(service, app.Components.HealthAll, log).Register(srv.GinEngine(), srv.Guards()...)
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return nil, err
	}

	app.OnReady(func(context.Context) error {
		srv.TrackRoutes(app.Summary)
		return nil
	})
	return app, nil
}
