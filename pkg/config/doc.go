// Package config provides configuration management for Warden.
//
// This package handles loading, validating, and defaulting configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("warden.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("warden.yaml")
//
// The returned *Config is owned by the caller. There is no package-level
// instance; the composition root in cmd/warden passes it to each component.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention WARDEN_SECTION_FIELD.
// For example:
//
//   - WARDEN_CACHE_PATH overrides cache.path
//   - WARDEN_HEALING_MAX_PER_HOUR overrides healing.max_per_hour
//   - WARDEN_ENDPOINTS_POLYGON_API_KEY overrides the api_key of endpoint "polygon"
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example
//
//	cache:
//	  path: data/signal_cache.json
//	  warn_after: 10m
//	  error_after: 30m
//	signals:
//	  watchlist: [SPY, QQQ, AAPL]
//	  tracked:
//	    - name: quote
//	      kind: object
//	      tier: core
//	      strategy: restart
//	    - name: momentum_score
//	      kind: number
//	      tier: computed
//	      strategy: recompute
//	endpoints:
//	  - name: broker
//	    role: broker
//	    url: https://broker.example.com/v2/account
//	    auth: {mode: header, header: APCA-API-KEY-ID, api_key_env: BROKER_KEY}
//	healing:
//	  recompute_url: http://127.0.0.1:9000/recompute
package config
