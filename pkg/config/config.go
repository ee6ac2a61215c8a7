package config

import "time"

// Config is the root configuration structure for Warden.
type Config struct {
	// Server contains the HTTP listener used by `warden run`.
	Server ServerConfig `yaml:"server"`

	// Schedule controls how often a full health cycle runs.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Cache describes the shared signal cache written by the ingestion process.
	Cache CacheConfig `yaml:"cache"`

	// Signals lists the tracked intelligence signals and the entity universe.
	Signals SignalsConfig `yaml:"signals"`

	// Events locates the structured logs of the trading application.
	Events EventsConfig `yaml:"events"`

	// Orders configures the market calendar and order pipeline thresholds.
	Orders OrdersConfig `yaml:"orders"`

	// Endpoints lists the external HTTP APIs to probe.
	Endpoints []EndpointConfig `yaml:"endpoints"`

	// Checks holds inputs for the simpler failure points.
	Checks ChecksConfig `yaml:"checks"`

	// Supervisor configures the external process manager.
	Supervisor SupervisorConfig `yaml:"supervisor"`

	// Healing configures automatic remediation.
	Healing HealingConfig `yaml:"healing"`

	// Snapshot locates the persisted readiness document.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is "host:port".
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout default: 5s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ScheduleConfig controls the periodic health cycle.
type ScheduleConfig struct {
	// Interval between cycles when Cron is empty.
	// Default: 300s
	Interval time.Duration `yaml:"interval"`

	// Cron overrides Interval with a cron expression (robfig/cron syntax,
	// descriptors such as "@every 1m" included).
	Cron string `yaml:"cron"`

	// CheckTimeout bounds every individual failure point. Capped at 10s.
	// Default: 10s
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// Workers bounds the number of failure points evaluated concurrently.
	// Default: 4
	Workers int `yaml:"workers"`

	// WatchFiles triggers an immediate cycle when the cache file or a freeze
	// marker changes.
	// Default: true
	WatchFiles *bool `yaml:"watch_files"`

	// DebounceInterval collapses bursts of file events.
	// Default: 2s
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// ReadMaxAge is how old the latest cycle may be before a readiness read
	// runs a fresh one. Zero evaluates on every read.
	// Default: 60s
	ReadMaxAge *time.Duration `yaml:"read_max_age"`

	// WatchMinGap is the minimum time between the start of one cycle and a
	// file-triggered cycle. Events inside the gap are dropped.
	// Default: 30s
	WatchMinGap time.Duration `yaml:"watch_min_gap"`
}

// CacheConfig describes the shared signal cache.
type CacheConfig struct {
	// Backend is "file" or "redis".
	// Default: "file"
	Backend string `yaml:"backend"`

	// Path is the cache file when Backend is "file".
	// Default: "data/signal_cache.json"
	Path string `yaml:"path"`

	// Redis is used when Backend is "redis".
	Redis RedisConfig `yaml:"redis"`

	// WarnAfter is the age at which cache freshness becomes WARN.
	// Default: 10m
	WarnAfter time.Duration `yaml:"warn_after"`

	// ErrorAfter is the age at which cache freshness becomes ERROR.
	// Default: 30m
	ErrorAfter time.Duration `yaml:"error_after"`
}

// RedisConfig locates a cache document stored in Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Key holding the JSON cache document.
	// Default: "warden:signal_cache"
	Key string `yaml:"key"`
}

// SignalsConfig configures the Signal Freshness Tracker.
type SignalsConfig struct {
	// Watchlist is the fixed set of entities always inspected.
	Watchlist []string `yaml:"watchlist"`

	// ExtraEntities caps how many additional cache entities are inspected.
	// Default: 20
	ExtraEntities int `yaml:"extra_entities"`

	// ActivityWindow is the recent-activity lookback.
	// Default: 1h
	ActivityWindow time.Duration `yaml:"activity_window"`

	// Tracked lists the monitored signals.
	Tracked []SignalSpec `yaml:"tracked"`
}

// SignalSpec describes one tracked signal.
type SignalSpec struct {
	// Name is the signal key inside each entity's cache object.
	Name string `yaml:"name"`

	// Kind is the expected value kind: "object", "number", "boolean",
	// "string", "list" or "any".
	// Default: "any"
	Kind string `yaml:"kind"`

	// Tier orders remediation: "core", "computed", "auxiliary" or "other".
	// Default: "other"
	Tier string `yaml:"tier"`

	// Strategy is the remediation used when the signal has no data:
	// "recompute", "refetch", "restart" or "none".
	// Default: "none"
	Strategy string `yaml:"strategy"`

	// Endpoint is the endpoint name used by the "refetch" strategy.
	Endpoint string `yaml:"endpoint"`

	// Params are extra query parameters for a refetch.
	Params map[string]string `yaml:"params"`
}

// EventsConfig locates the structured logs.
type EventsConfig struct {
	// APILog holds api_request / api_error records.
	// Default: "logs/api.jsonl"
	APILog string `yaml:"api_log"`

	// ExecutionLog holds order_* records.
	// Default: "logs/executions.jsonl"
	ExecutionLog string `yaml:"execution_log"`

	// EventsLog holds signal records.
	// Default: "logs/events.jsonl"
	EventsLog string `yaml:"events_log"`

	// ErrorLog holds error records.
	// Default: "logs/errors.jsonl"
	ErrorLog string `yaml:"error_log"`

	// TailRecords bounds how many trailing records are read per log.
	// Default: 2000
	TailRecords int `yaml:"tail_records"`
}

// OrdersConfig configures the Order Pipeline Health Checker.
type OrdersConfig struct {
	// Timezone of the exchange session.
	// Default: "America/New_York"
	Timezone string `yaml:"timezone"`

	// SessionOpen is the local "HH:MM" session start.
	// Default: "09:30"
	SessionOpen string `yaml:"session_open"`

	// SessionClose is the local "HH:MM" session end.
	// Default: "16:00"
	SessionClose string `yaml:"session_close"`

	// Holidays lists "YYYY-MM-DD" full-day closures.
	Holidays []string `yaml:"holidays"`

	// ScanRecords is how many of the most recent execution records are scanned.
	// Default: 500
	ScanRecords int `yaml:"scan_records"`

	// InactivityAfter is the idle period that marks the pipeline degraded.
	// Default: 1h
	InactivityAfter time.Duration `yaml:"inactivity_after"`
}

// EndpointConfig describes one external HTTP API.
type EndpointConfig struct {
	// Name identifies the endpoint in logs and failure point ids.
	Name string `yaml:"name"`

	// URL is the probe target.
	URL string `yaml:"url"`

	// Role is "broker" or "market_data".
	// Default: "market_data"
	Role string `yaml:"role"`

	// Critical escalates probe failures of a market data endpoint to ERROR.
	Critical bool `yaml:"critical"`

	// Timeout for one probe. Capped at 5s.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// Params are the minimal test query parameters.
	Params map[string]string `yaml:"params"`

	// Auth describes how credentials are attached.
	Auth AuthConfig `yaml:"auth"`

	// RateLimitHeader carries the remaining request allowance.
	// Default: "X-RateLimit-Remaining"
	RateLimitHeader string `yaml:"rate_limit_header"`
}

// AuthConfig describes endpoint credentials.
type AuthConfig struct {
	// Mode is "none", "query", "header" or "bearer".
	// Default: "none"
	Mode string `yaml:"mode"`

	// Param is the query parameter name for Mode "query".
	// Default: "apiKey"
	Param string `yaml:"param"`

	// Header is the header name for Mode "header".
	// Default: "X-API-Key"
	Header string `yaml:"header"`

	// APIKey is a literal credential. Prefer APIKeyEnv.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env"`
}

// ChecksConfig holds inputs for the liveness and configuration checks.
type ChecksConfig struct {
	// AdaptiveParamsPath is the adaptive-parameter store.
	// Default: "data/adaptive_params.json"
	AdaptiveParamsPath string `yaml:"adaptive_params_path"`

	// ExpectedComponents is the fixed component cardinality of the store.
	// Default: 5
	ExpectedComponents int `yaml:"expected_components"`

	// FreezeMarkers are files whose presence halts trading.
	// Default: ["data/TRADING_FROZEN", "data/SYSTEM_FROZEN"]
	FreezeMarkers []string `yaml:"freeze_markers"`
}

// SupervisorConfig configures the external process supervisor.
type SupervisorConfig struct {
	// Backend is "systemd" or "noop".
	// Default: "systemd"
	Backend string `yaml:"backend"`

	// Systemctl is the systemctl binary.
	// Default: "systemctl"
	Systemctl string `yaml:"systemctl"`

	// UserMode passes --user to systemctl.
	UserMode bool `yaml:"user_mode"`

	// IngestionUnit is the data ingestion service.
	// Default: "market-ingest.service"
	IngestionUnit string `yaml:"ingestion_unit"`

	// TradingUnit is the main trading service.
	// Default: "trader.service"
	TradingUnit string `yaml:"trading_unit"`

	// CommandTimeout bounds each supervisor call. Capped at 10s.
	// Default: 10s
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// HealingConfig configures the Self-Healing Remediator.
type HealingConfig struct {
	// Enabled turns remediation on.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// MaxPerHour is the attempt budget per signal within Window.
	// Default: 3
	MaxPerHour int `yaml:"max_per_hour"`

	// Cooldown is the minimum gap between attempts for one signal.
	// Default: 300s
	Cooldown time.Duration `yaml:"cooldown"`

	// Window is the rate-limit lookback.
	// Default: 1h
	Window time.Duration `yaml:"window"`

	// QueueSize bounds pending remediation cycles.
	// Default: 8
	QueueSize int `yaml:"queue_size"`

	// RecomputeURL receives recompute requests for derived signals.
	RecomputeURL string `yaml:"recompute_url"`

	// RecomputeBatch bounds the entities sent per recompute.
	// Default: 10
	RecomputeBatch int `yaml:"recompute_batch"`

	// ActionTimeout bounds a single strategy.
	// Default: 30s
	ActionTimeout time.Duration `yaml:"action_timeout"`

	// Ledger configures the attempt ledger.
	Ledger LedgerConfig `yaml:"ledger"`

	// Retention configures ledger compaction.
	Retention RetentionConfig `yaml:"retention"`
}

// LedgerConfig configures the healing attempt ledger.
type LedgerConfig struct {
	// Backend is "file", "sqlite" or "memory".
	// Default: "file"
	Backend string `yaml:"backend"`

	// Path of the JSON-lines ledger or the SQLite database.
	// Default: "data/healing_ledger.jsonl"
	Path string `yaml:"path"`

	// BusyTimeout for the SQLite backend.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures ledger compaction.
type RetentionConfig struct {
	// Days of attempts to keep. Must cover the healing window.
	// Default: 7
	Days int `yaml:"days"`

	// Schedule is a cron expression for pruning.
	// Default: "0 4 * * *"
	Schedule string `yaml:"schedule"`
}

// SnapshotConfig locates the persisted readiness document.
type SnapshotConfig struct {
	// Path default: "data/health_state.json"
	Path string `yaml:"path"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks credentials in log fields.
	// Default: true
	RedactSecrets *bool `yaml:"redact_secrets"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled default: true
	Enabled *bool `yaml:"enabled"`

	// Path default: "/metrics"
	Path string `yaml:"path"`

	// Namespace default: "warden"
	Namespace string `yaml:"namespace"`
}

// BoolValue dereferences an optional flag, returning def when unset.
func BoolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Broker returns the endpoint with role "broker", if any.
func (c *Config) Broker() (EndpointConfig, bool) {
	for _, ep := range c.Endpoints {
		if ep.Role == RoleBroker {
			return ep, true
		}
	}
	return EndpointConfig{}, false
}

// Signal returns the spec for a tracked signal.
func (c *Config) Signal(name string) (SignalSpec, bool) {
	for _, s := range c.Signals.Tracked {
		if s.Name == name {
			return s, true
		}
	}
	return SignalSpec{}, false
}
