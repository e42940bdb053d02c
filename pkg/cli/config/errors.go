package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound   = goerr.New("configuration file not found")
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrDuplicateRoute   = goerr.New("duplicate route name")
	ErrInvalidThreshold = goerr.New("invalid gap threshold")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	RouteNameKey  = "route_name"
	RouteIndexKey = "route_index"
)
