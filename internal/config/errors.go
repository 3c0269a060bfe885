package config

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
	ErrLoadEvent     = errors.New("load event definition failed")
	ErrInvalidEvent  = errors.New("invalid event definition")
)
