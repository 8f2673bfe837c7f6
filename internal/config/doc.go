// Package config handles configuration loading for docchat.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults; the
// client runs fine without any config file at all.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from DOCCHAT_CONFIG environment variable
//  2. ./docchat.yaml (current directory)
//  3. ~/.config/docchat/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	server:
//	  url: "${DOCCHAT_SERVER_URL}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	streaming:
//	  tick: "40ms"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  url: "http://localhost:8000"
//
// Local cache:
//
//	cache:
//	  enabled: true
//	  path: "~/.local/share/docchat/cache.db"
//
// Streaming simulation:
//
//	streaming:
//	  simulate: true
//	  batch: 3
//	  tick: "40ms"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
