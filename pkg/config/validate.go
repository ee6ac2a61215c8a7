package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "cache.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateSignals(cfg)...)
	errs = append(errs, validateOrders(&cfg.Orders)...)
	errs = append(errs, validateEndpoints(cfg.Endpoints)...)
	errs = append(errs, validateChecks(&cfg.Checks)...)
	errs = append(errs, validateSupervisor(&cfg.Supervisor)...)
	errs = append(errs, validateHealing(&cfg.Healing)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Snapshot.Path == "" {
		errs = append(errs, FieldError{
			Field:   "snapshot.path",
			Message: "snapshot path is required",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError

	if cfg.Cron == "" && cfg.Interval < time.Second {
		errs = append(errs, FieldError{
			Field:   "schedule.interval",
			Message: "interval must be at least 1s",
		})
	}
	if cfg.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			errs = append(errs, FieldError{
				Field:   "schedule.cron",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Cron, err),
			})
		}
	}
	if cfg.CheckTimeout <= 0 || cfg.CheckTimeout > MaxCheckTimeout {
		errs = append(errs, FieldError{
			Field:   "schedule.check_timeout",
			Message: fmt.Sprintf("check timeout must be between 0 and %s", MaxCheckTimeout),
		})
	}
	if cfg.Workers < 1 {
		errs = append(errs, FieldError{
			Field:   "schedule.workers",
			Message: "workers must be at least 1",
		})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "schedule.debounce_interval",
			Message: "debounce interval must be non-negative",
		})
	}
	if cfg.ReadMaxAge != nil && *cfg.ReadMaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "schedule.read_max_age",
			Message: "read max age must be non-negative",
		})
	}
	if cfg.WatchMinGap < 0 {
		errs = append(errs, FieldError{
			Field:   "schedule.watch_min_gap",
			Message: "watch min gap must be non-negative",
		})
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"file": true, "redis": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'file' or 'redis'", cfg.Backend),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "cache.path",
			Message: "cache path is required",
		})
	}
	if cfg.Backend == "redis" {
		if cfg.Redis.Addr == "" {
			errs = append(errs, FieldError{
				Field:   "cache.redis.addr",
				Message: "redis address is required when backend is 'redis'",
			})
		}
		if cfg.Redis.Key == "" {
			errs = append(errs, FieldError{
				Field:   "cache.redis.key",
				Message: "redis key is required when backend is 'redis'",
			})
		}
	}
	if cfg.WarnAfter <= 0 {
		errs = append(errs, FieldError{
			Field:   "cache.warn_after",
			Message: "warn threshold must be positive",
		})
	}
	if cfg.ErrorAfter <= cfg.WarnAfter {
		errs = append(errs, FieldError{
			Field:   "cache.error_after",
			Message: "error threshold must be greater than warn threshold",
		})
	}

	return errs
}

func validateSignals(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.Signals.ExtraEntities < 0 {
		errs = append(errs, FieldError{
			Field:   "signals.extra_entities",
			Message: "extra entities must be non-negative",
		})
	}
	if cfg.Signals.ActivityWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "signals.activity_window",
			Message: "activity window must be positive",
		})
	}

	validKinds := map[string]bool{"object": true, "number": true, "boolean": true, "string": true, "list": true, "any": true}
	validTiers := map[string]bool{TierCore: true, TierComputed: true, TierAuxiliary: true, TierOther: true}
	validStrategies := map[string]bool{"recompute": true, "refetch": true, "restart": true, "none": true}

	seen := make(map[string]bool)
	for i, s := range cfg.Signals.Tracked {
		prefix := fmt.Sprintf("signals.tracked[%d]", i)
		if s.Name == "" {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: "signal name is required"})
		} else if seen[s.Name] {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: fmt.Sprintf("duplicate signal %q", s.Name)})
		}
		seen[s.Name] = true

		if !validKinds[s.Kind] {
			errs = append(errs, FieldError{
				Field:   prefix + ".kind",
				Message: fmt.Sprintf("invalid kind %q: must be 'object', 'number', 'boolean', 'string', 'list', or 'any'", s.Kind),
			})
		}
		if !validTiers[s.Tier] {
			errs = append(errs, FieldError{
				Field:   prefix + ".tier",
				Message: fmt.Sprintf("invalid tier %q: must be 'core', 'computed', 'auxiliary', or 'other'", s.Tier),
			})
		}
		if !validStrategies[s.Strategy] {
			errs = append(errs, FieldError{
				Field:   prefix + ".strategy",
				Message: fmt.Sprintf("invalid strategy %q: must be 'recompute', 'refetch', 'restart', or 'none'", s.Strategy),
			})
		}

		switch s.Strategy {
		case "refetch":
			if s.Endpoint == "" {
				errs = append(errs, FieldError{Field: prefix + ".endpoint", Message: "endpoint is required for strategy 'refetch'"})
			} else if !hasEndpoint(cfg.Endpoints, s.Endpoint) {
				errs = append(errs, FieldError{Field: prefix + ".endpoint", Message: fmt.Sprintf("unknown endpoint %q", s.Endpoint)})
			}
		case "recompute":
			if cfg.Healing.RecomputeURL == "" {
				errs = append(errs, FieldError{Field: "healing.recompute_url", Message: fmt.Sprintf("recompute url is required by signal %q", s.Name)})
			}
		}
	}

	return errs
}

func hasEndpoint(endpoints []EndpointConfig, name string) bool {
	for _, ep := range endpoints {
		if ep.Name == name {
			return true
		}
	}
	return false
}

func validateOrders(cfg *OrdersConfig) []FieldError {
	var errs []FieldError

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, FieldError{
			Field:   "orders.timezone",
			Message: fmt.Sprintf("unknown time zone %q", cfg.Timezone),
		})
	}
	open, errOpen := ParseClock(cfg.SessionOpen)
	if errOpen != nil {
		errs = append(errs, FieldError{Field: "orders.session_open", Message: errOpen.Error()})
	}
	closeAt, errClose := ParseClock(cfg.SessionClose)
	if errClose != nil {
		errs = append(errs, FieldError{Field: "orders.session_close", Message: errClose.Error()})
	}
	if errOpen == nil && errClose == nil && closeAt <= open {
		errs = append(errs, FieldError{
			Field:   "orders.session_close",
			Message: "session close must be after session open",
		})
	}
	for i, h := range cfg.Holidays {
		if _, err := time.Parse(time.DateOnly, h); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("orders.holidays[%d]", i),
				Message: fmt.Sprintf("invalid date %q: must be YYYY-MM-DD", h),
			})
		}
	}
	if cfg.ScanRecords < 1 {
		errs = append(errs, FieldError{
			Field:   "orders.scan_records",
			Message: "scan records must be at least 1",
		})
	}
	if cfg.InactivityAfter <= 0 {
		errs = append(errs, FieldError{
			Field:   "orders.inactivity_after",
			Message: "inactivity threshold must be positive",
		})
	}

	return errs
}

// ParseClock parses a "HH:MM" wall clock time into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: must be HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func validateEndpoints(endpoints []EndpointConfig) []FieldError {
	var errs []FieldError

	validRoles := map[string]bool{RoleBroker: true, RoleMarketData: true}
	validModes := map[string]bool{AuthNone: true, AuthQuery: true, AuthHeader: true, AuthBearer: true}

	seen := make(map[string]bool)
	brokers := 0
	for i, ep := range endpoints {
		prefix := fmt.Sprintf("endpoints[%d]", i)

		if ep.Name == "" {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: "endpoint name is required"})
		} else if seen[ep.Name] {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: fmt.Sprintf("duplicate endpoint %q", ep.Name)})
		}
		seen[ep.Name] = true

		if ep.URL == "" {
			errs = append(errs, FieldError{Field: prefix + ".url", Message: "endpoint url is required"})
		} else if u, err := url.Parse(ep.URL); err != nil {
			errs = append(errs, FieldError{Field: prefix + ".url", Message: fmt.Sprintf("invalid URL: %v", err)})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, FieldError{Field: prefix + ".url", Message: "URL scheme must be http or https"})
		}

		if !validRoles[ep.Role] {
			errs = append(errs, FieldError{
				Field:   prefix + ".role",
				Message: fmt.Sprintf("invalid role %q: must be 'broker' or 'market_data'", ep.Role),
			})
		}
		if ep.Role == RoleBroker {
			brokers++
		}
		if ep.Timeout <= 0 || ep.Timeout > MaxEndpointTimeout {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: fmt.Sprintf("timeout must be between 0 and %s", MaxEndpointTimeout),
			})
		}
		if !validModes[ep.Auth.Mode] {
			errs = append(errs, FieldError{
				Field:   prefix + ".auth.mode",
				Message: fmt.Sprintf("invalid auth mode %q: must be 'none', 'query', 'header', or 'bearer'", ep.Auth.Mode),
			})
		}
		if ep.Auth.Mode != AuthNone && ep.Auth.APIKey == "" && ep.Auth.APIKeyEnv == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".auth",
				Message: "api_key or api_key_env is required when auth mode is not 'none'",
			})
		}
	}

	if brokers > 1 {
		errs = append(errs, FieldError{
			Field:   "endpoints",
			Message: "at most one endpoint may have role 'broker'",
		})
	}

	return errs
}

func validateChecks(cfg *ChecksConfig) []FieldError {
	var errs []FieldError

	if cfg.AdaptiveParamsPath == "" {
		errs = append(errs, FieldError{
			Field:   "checks.adaptive_params_path",
			Message: "adaptive params path is required",
		})
	}
	if cfg.ExpectedComponents < 1 {
		errs = append(errs, FieldError{
			Field:   "checks.expected_components",
			Message: "expected components must be at least 1",
		})
	}

	return errs
}

func validateSupervisor(cfg *SupervisorConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"systemd": true, "noop": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "supervisor.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'systemd' or 'noop'", cfg.Backend),
		})
	}
	if cfg.IngestionUnit == "" {
		errs = append(errs, FieldError{Field: "supervisor.ingestion_unit", Message: "ingestion unit is required"})
	}
	if cfg.TradingUnit == "" {
		errs = append(errs, FieldError{Field: "supervisor.trading_unit", Message: "trading unit is required"})
	}
	if cfg.CommandTimeout <= 0 || cfg.CommandTimeout > MaxCheckTimeout {
		errs = append(errs, FieldError{
			Field:   "supervisor.command_timeout",
			Message: fmt.Sprintf("command timeout must be between 0 and %s", MaxCheckTimeout),
		})
	}

	return errs
}

func validateHealing(cfg *HealingConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxPerHour < 1 {
		errs = append(errs, FieldError{Field: "healing.max_per_hour", Message: "max per hour must be at least 1"})
	}
	if cfg.Cooldown < 0 {
		errs = append(errs, FieldError{Field: "healing.cooldown", Message: "cooldown must be non-negative"})
	}
	if cfg.Window <= 0 {
		errs = append(errs, FieldError{Field: "healing.window", Message: "window must be positive"})
	}
	if cfg.QueueSize < 1 {
		errs = append(errs, FieldError{Field: "healing.queue_size", Message: "queue size must be at least 1"})
	}
	if cfg.RecomputeBatch < 1 {
		errs = append(errs, FieldError{Field: "healing.recompute_batch", Message: "recompute batch must be at least 1"})
	}
	if cfg.RecomputeURL != "" {
		if u, err := url.Parse(cfg.RecomputeURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, FieldError{Field: "healing.recompute_url", Message: "recompute url must be an http or https URL"})
		}
	}

	validBackends := map[string]bool{"file": true, "sqlite": true, "memory": true}
	if !validBackends[cfg.Ledger.Backend] {
		errs = append(errs, FieldError{
			Field:   "healing.ledger.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'file', 'sqlite', or 'memory'", cfg.Ledger.Backend),
		})
	}
	if cfg.Ledger.Backend != "memory" && cfg.Ledger.Path == "" {
		errs = append(errs, FieldError{Field: "healing.ledger.path", Message: "ledger path is required"})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "healing.retention.days", Message: "retention days must be non-negative"})
	} else if cfg.Retention.Days > 0 && time.Duration(cfg.Retention.Days)*24*time.Hour < cfg.Window {
		errs = append(errs, FieldError{
			Field:   "healing.retention.days",
			Message: "retention must cover at least the rate limit window",
		})
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "healing.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.Schedule, err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if BoolValue(cfg.Metrics.Enabled, DefaultMetricsEnabled) {
		if cfg.Metrics.Path == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path is required when metrics are enabled",
			})
		} else if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/'",
			})
		}
	}

	return errs
}
