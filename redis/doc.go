// Package redis wraps go-redis with the service's logging and lifecycle.
//
// The diarization result cache is its only consumer: a TypedStore keyed by
// the audio digest holds JSON-encoded results with a TTL.
//
//	comp := redis.NewComponent(cfg, log)
//	registry.Register(comp)
//	store := redis.NewTypedStore[diarization.Result](comp.Client(), "diarizer:result")
package redis
