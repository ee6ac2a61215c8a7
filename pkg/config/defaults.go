package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// Schedule defaults
	DefaultInterval         = 300 * time.Second
	DefaultCheckTimeout     = 10 * time.Second
	MaxCheckTimeout         = 10 * time.Second
	DefaultWorkers          = 4
	DefaultWatchFiles       = true
	DefaultDebounceInterval = 2 * time.Second
	DefaultReadMaxAge       = 60 * time.Second
	DefaultWatchMinGap      = 30 * time.Second

	// Cache defaults
	DefaultCacheBackend    = "file"
	DefaultCachePath       = "data/signal_cache.json"
	DefaultCacheRedisKey   = "warden:signal_cache"
	DefaultCacheWarnAfter  = 10 * time.Minute
	DefaultCacheErrorAfter = 30 * time.Minute

	// Signals defaults
	DefaultExtraEntities  = 20
	DefaultActivityWindow = time.Hour
	DefaultSignalKind     = "any"
	DefaultSignalTier     = "other"
	DefaultSignalStrategy = "none"

	// Events defaults
	DefaultAPILog       = "logs/api.jsonl"
	DefaultExecutionLog = "logs/executions.jsonl"
	DefaultEventsLog    = "logs/events.jsonl"
	DefaultErrorLog     = "logs/errors.jsonl"
	DefaultTailRecords  = 2000

	// Orders defaults
	DefaultTimezone        = "America/New_York"
	DefaultSessionOpen     = "09:30"
	DefaultSessionClose    = "16:00"
	DefaultScanRecords     = 500
	DefaultInactivityAfter = time.Hour

	// Endpoint defaults
	DefaultEndpointRole    = RoleMarketData
	DefaultEndpointTimeout = 5 * time.Second
	MaxEndpointTimeout     = 5 * time.Second
	DefaultAuthMode        = AuthNone
	DefaultAuthParam       = "apiKey"
	DefaultAuthHeader      = "X-API-Key"
	DefaultRateLimitHeader = "X-RateLimit-Remaining"

	// Checks defaults
	DefaultAdaptiveParamsPath = "data/adaptive_params.json"
	DefaultExpectedComponents = 5

	// Supervisor defaults
	DefaultSupervisorBackend = "systemd"
	DefaultSystemctl         = "systemctl"
	DefaultIngestionUnit     = "market-ingest.service"
	DefaultTradingUnit       = "trader.service"
	DefaultCommandTimeout    = 10 * time.Second

	// Healing defaults
	DefaultHealingEnabled    = true
	DefaultMaxPerHour        = 3
	DefaultCooldown          = 300 * time.Second
	DefaultWindow            = 3600 * time.Second
	DefaultQueueSize         = 8
	DefaultRecomputeBatch    = 10
	DefaultActionTimeout     = 30 * time.Second
	DefaultLedgerBackend     = "file"
	DefaultLedgerPath        = "data/healing_ledger.jsonl"
	DefaultLedgerBusyTimeout = 5 * time.Second
	DefaultRetentionDays     = 7
	DefaultRetentionSchedule = "0 4 * * *"

	// Snapshot defaults
	DefaultSnapshotPath = "data/health_state.json"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultRedactSecrets    = true
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "warden"
)

// Signal tiers, highest remediation priority first.
const (
	TierCore      = "core"
	TierComputed  = "computed"
	TierAuxiliary = "auxiliary"
	TierOther     = "other"
)

// Endpoint roles.
const (
	RoleBroker     = "broker"
	RoleMarketData = "market_data"
)

// Endpoint authentication modes.
const (
	AuthNone   = "none"
	AuthQuery  = "query"
	AuthHeader = "header"
	AuthBearer = "bearer"
)

// DefaultFreezeMarkers are the marker files checked when none are configured.
var DefaultFreezeMarkers = []string{"data/TRADING_FROZEN", "data/SYSTEM_FROZEN"}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	applyScheduleDefaults(&cfg.Schedule)
	applyCacheDefaults(&cfg.Cache)
	applySignalsDefaults(&cfg.Signals)

	// Events defaults
	if cfg.Events.APILog == "" {
		cfg.Events.APILog = DefaultAPILog
	}
	if cfg.Events.ExecutionLog == "" {
		cfg.Events.ExecutionLog = DefaultExecutionLog
	}
	if cfg.Events.EventsLog == "" {
		cfg.Events.EventsLog = DefaultEventsLog
	}
	if cfg.Events.ErrorLog == "" {
		cfg.Events.ErrorLog = DefaultErrorLog
	}
	if cfg.Events.TailRecords == 0 {
		cfg.Events.TailRecords = DefaultTailRecords
	}

	// Orders defaults
	if cfg.Orders.Timezone == "" {
		cfg.Orders.Timezone = DefaultTimezone
	}
	if cfg.Orders.SessionOpen == "" {
		cfg.Orders.SessionOpen = DefaultSessionOpen
	}
	if cfg.Orders.SessionClose == "" {
		cfg.Orders.SessionClose = DefaultSessionClose
	}
	if cfg.Orders.ScanRecords == 0 {
		cfg.Orders.ScanRecords = DefaultScanRecords
	}
	if cfg.Orders.InactivityAfter == 0 {
		cfg.Orders.InactivityAfter = DefaultInactivityAfter
	}

	for i := range cfg.Endpoints {
		applyEndpointDefaults(&cfg.Endpoints[i])
	}

	// Checks defaults
	if cfg.Checks.AdaptiveParamsPath == "" {
		cfg.Checks.AdaptiveParamsPath = DefaultAdaptiveParamsPath
	}
	if cfg.Checks.ExpectedComponents == 0 {
		cfg.Checks.ExpectedComponents = DefaultExpectedComponents
	}
	if cfg.Checks.FreezeMarkers == nil {
		cfg.Checks.FreezeMarkers = append([]string(nil), DefaultFreezeMarkers...)
	}

	// Supervisor defaults
	if cfg.Supervisor.Backend == "" {
		cfg.Supervisor.Backend = DefaultSupervisorBackend
	}
	if cfg.Supervisor.Systemctl == "" {
		cfg.Supervisor.Systemctl = DefaultSystemctl
	}
	if cfg.Supervisor.IngestionUnit == "" {
		cfg.Supervisor.IngestionUnit = DefaultIngestionUnit
	}
	if cfg.Supervisor.TradingUnit == "" {
		cfg.Supervisor.TradingUnit = DefaultTradingUnit
	}
	if cfg.Supervisor.CommandTimeout == 0 {
		cfg.Supervisor.CommandTimeout = DefaultCommandTimeout
	}

	applyHealingDefaults(&cfg.Healing)

	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = DefaultSnapshotPath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.RedactSecrets == nil {
		cfg.Telemetry.Logging.RedactSecrets = Bool(DefaultRedactSecrets)
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = Bool(DefaultMetricsEnabled)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}

func applyScheduleDefaults(cfg *ScheduleConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.WatchFiles == nil {
		cfg.WatchFiles = Bool(DefaultWatchFiles)
	}
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.ReadMaxAge == nil {
		d := DefaultReadMaxAge
		cfg.ReadMaxAge = &d
	}
	if cfg.WatchMinGap == 0 {
		cfg.WatchMinGap = DefaultWatchMinGap
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultCacheBackend
	}
	if cfg.Path == "" {
		cfg.Path = DefaultCachePath
	}
	if cfg.Redis.Key == "" {
		cfg.Redis.Key = DefaultCacheRedisKey
	}
	if cfg.WarnAfter == 0 {
		cfg.WarnAfter = DefaultCacheWarnAfter
	}
	if cfg.ErrorAfter == 0 {
		cfg.ErrorAfter = DefaultCacheErrorAfter
	}
}

func applySignalsDefaults(cfg *SignalsConfig) {
	if cfg.ExtraEntities == 0 {
		cfg.ExtraEntities = DefaultExtraEntities
	}
	if cfg.ActivityWindow == 0 {
		cfg.ActivityWindow = DefaultActivityWindow
	}
	for i := range cfg.Tracked {
		s := &cfg.Tracked[i]
		if s.Kind == "" {
			s.Kind = DefaultSignalKind
		}
		if s.Tier == "" {
			s.Tier = DefaultSignalTier
		}
		if s.Strategy == "" {
			s.Strategy = DefaultSignalStrategy
		}
	}
}

func applyEndpointDefaults(ep *EndpointConfig) {
	if ep.Role == "" {
		ep.Role = DefaultEndpointRole
	}
	if ep.Timeout == 0 {
		ep.Timeout = DefaultEndpointTimeout
	}
	if ep.Auth.Mode == "" {
		ep.Auth.Mode = DefaultAuthMode
	}
	if ep.Auth.Param == "" {
		ep.Auth.Param = DefaultAuthParam
	}
	if ep.Auth.Header == "" {
		ep.Auth.Header = DefaultAuthHeader
	}
	if ep.RateLimitHeader == "" {
		ep.RateLimitHeader = DefaultRateLimitHeader
	}
}

func applyHealingDefaults(cfg *HealingConfig) {
	if cfg.Enabled == nil {
		cfg.Enabled = Bool(DefaultHealingEnabled)
	}
	if cfg.MaxPerHour == 0 {
		cfg.MaxPerHour = DefaultMaxPerHour
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.RecomputeBatch == 0 {
		cfg.RecomputeBatch = DefaultRecomputeBatch
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = DefaultActionTimeout
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.BusyTimeout == 0 {
		cfg.Ledger.BusyTimeout = DefaultLedgerBusyTimeout
	}
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}
}
