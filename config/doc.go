// Package config loads service configuration with Viper.
//
// A YAML file (cmd/<service>/config.yml by default) supplies the base
// values, a .env file is loaded into the process environment, and every
// environment variable is bound to the matching nested key, so
// SERVER_PORT overrides server.port. Well-known variables that do not follow
// the nesting convention, such as HF_TOKEN, are mapped with WithEnvAliases.
//
//	var cfg Config
//	err := config.LoadConfig("diarizer", &cfg,
//	    config.WithEnvAliases(map[string]string{"HF_TOKEN": "pipeline.token"}))
package config
