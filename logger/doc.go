// Package logger provides structured logging backed by zerolog.
//
// Loggers are component-scoped and take optional field maps:
//
//	log := logger.Get("pipeline")
//	log.Info("pipeline ready", logger.Fields("model", model, "load_ms", ms))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"   # or "console"
package logger
