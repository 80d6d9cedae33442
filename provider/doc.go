// Package provider is a small generic registry for swappable backends.
//
// Backends register a Factory under a name; the service picks one by name
// from its config and passes the backend's own options block through:
//
//	reg := provider.NewRegistry[diarization.Loader]()
//	reg.RegisterFactory("pyannote", pyannote.NewFactory(log))
//	loader, err := reg.Create(cfg.Pipeline.Backend, cfg.Pipeline.Options)
//
// Factories decode their options with Decode.
package provider
