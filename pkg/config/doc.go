// Package config loads environment-based configuration structs.
//
// Every component in the module declares its own Config struct with
// `env` tags and loads it through config.Load, which layers a local
// .env file (development convenience) under real environment variables
// and caches the parsed result per type.
//
//	type Config struct {
//		MaxRequests int           `env:"RATE_LIMIT_MAX" envDefault:"60"`
//		Window      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
