package provider

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Provider is the base interface all providers implement.
type Provider interface {
	// Name returns the provider's registered name.
	Name() string
	// IsAvailable reports whether the backend can currently be reached.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider from its options block.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// Decode copies a loosely typed options map into out, a pointer to a struct
// with mapstructure tags. Strings such as "30s" decode into time.Duration
// and "a,b" into []string; unknown keys are rejected.
func Decode(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("provider: decoder: %w", err)
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("provider: decode options: %w", err)
	}
	return nil
}
