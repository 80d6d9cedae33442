package bootstrap

import (
	"github.com/kbukum/diarizer/config"
)

// Config is satisfied by any struct embedding config.ServiceConfig with
// its own ApplyDefaults and Validate.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
