package config

import "errors"

// Error kinds returned by Load and Validate.
var (
	// ErrInvalidConfig marks a value outside its allowed range or a type
	// that cannot be decoded into Config.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks an unreadable .env, YAML file or environment.
	ErrLoadConfig = errors.New("load config failed")
)
