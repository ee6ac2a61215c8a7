package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WARDEN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention WARDEN_SECTION_FIELD (e.g., WARDEN_CACHE_PATH).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied and
// environment overrides honored. Used when no file is given.
func Default() (*Config, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	applyEnvOverrides(cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format WARDEN_SECTION_FIELD.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	env := func(key string) string { return getenv(EnvPrefix + key) }

	setString(&cfg.Server.ListenAddress, env("SERVER_LISTEN_ADDRESS"))

	setDuration(&cfg.Schedule.Interval, env("SCHEDULE_INTERVAL"))
	setString(&cfg.Schedule.Cron, env("SCHEDULE_CRON"))
	setDuration(&cfg.Schedule.CheckTimeout, env("SCHEDULE_CHECK_TIMEOUT"))
	setInt(&cfg.Schedule.Workers, env("SCHEDULE_WORKERS"))
	setBoolPtr(&cfg.Schedule.WatchFiles, env("SCHEDULE_WATCH_FILES"))
	setDurationPtr(&cfg.Schedule.ReadMaxAge, env("SCHEDULE_READ_MAX_AGE"))
	setDuration(&cfg.Schedule.WatchMinGap, env("SCHEDULE_WATCH_MIN_GAP"))

	setString(&cfg.Cache.Backend, env("CACHE_BACKEND"))
	setString(&cfg.Cache.Path, env("CACHE_PATH"))
	setString(&cfg.Cache.Redis.Addr, env("CACHE_REDIS_ADDR"))
	setString(&cfg.Cache.Redis.Password, env("CACHE_REDIS_PASSWORD"))
	setInt(&cfg.Cache.Redis.DB, env("CACHE_REDIS_DB"))
	setString(&cfg.Cache.Redis.Key, env("CACHE_REDIS_KEY"))

	if val := env("SIGNALS_WATCHLIST"); val != "" {
		cfg.Signals.Watchlist = splitList(val)
	}

	setString(&cfg.Events.APILog, env("EVENTS_API_LOG"))
	setString(&cfg.Events.ExecutionLog, env("EVENTS_EXECUTION_LOG"))
	setString(&cfg.Events.EventsLog, env("EVENTS_EVENTS_LOG"))
	setString(&cfg.Events.ErrorLog, env("EVENTS_ERROR_LOG"))

	setString(&cfg.Orders.Timezone, env("ORDERS_TIMEZONE"))

	setString(&cfg.Supervisor.Backend, env("SUPERVISOR_BACKEND"))
	setString(&cfg.Supervisor.IngestionUnit, env("SUPERVISOR_INGESTION_UNIT"))
	setString(&cfg.Supervisor.TradingUnit, env("SUPERVISOR_TRADING_UNIT"))

	setBoolPtr(&cfg.Healing.Enabled, env("HEALING_ENABLED"))
	setInt(&cfg.Healing.MaxPerHour, env("HEALING_MAX_PER_HOUR"))
	setDuration(&cfg.Healing.Cooldown, env("HEALING_COOLDOWN"))
	setString(&cfg.Healing.RecomputeURL, env("HEALING_RECOMPUTE_URL"))
	setString(&cfg.Healing.Ledger.Backend, env("HEALING_LEDGER_BACKEND"))
	setString(&cfg.Healing.Ledger.Path, env("HEALING_LEDGER_PATH"))
	setInt(&cfg.Healing.Retention.Days, env("HEALING_RETENTION_DAYS"))

	setString(&cfg.Snapshot.Path, env("SNAPSHOT_PATH"))

	setString(&cfg.Telemetry.Logging.Level, env("TELEMETRY_LOGGING_LEVEL"))
	setString(&cfg.Telemetry.Logging.Format, env("TELEMETRY_LOGGING_FORMAT"))
	setBoolPtr(&cfg.Telemetry.Metrics.Enabled, env("TELEMETRY_METRICS_ENABLED"))

	for i := range cfg.Endpoints {
		applyEndpointEnvOverrides(&cfg.Endpoints[i], env)
	}
}

// applyEndpointEnvOverrides applies WARDEN_ENDPOINTS_<NAME>_<FIELD> overrides.
func applyEndpointEnvOverrides(ep *EndpointConfig, env func(string) string) {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(ep.Name))
	prefix := "ENDPOINTS_" + name + "_"

	setString(&ep.URL, env(prefix+"URL"))
	setString(&ep.Auth.APIKey, env(prefix+"API_KEY"))
	setDuration(&ep.Timeout, env(prefix+"TIMEOUT"))
	if val := env(prefix + "CRITICAL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			ep.Critical = b
		}
	}
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func setInt(dst *int, val string) {
	if val == "" {
		return
	}
	if n, err := strconv.Atoi(val); err == nil {
		*dst = n
	}
}

func setDuration(dst *time.Duration, val string) {
	if val == "" {
		return
	}
	if d, err := time.ParseDuration(val); err == nil {
		*dst = d
	}
}

func setDurationPtr(dst **time.Duration, val string) {
	if val == "" {
		return
	}
	if d, err := time.ParseDuration(val); err == nil {
		*dst = &d
	}
}

func setBoolPtr(dst **bool, val string) {
	if val == "" {
		return
	}
	if b, err := strconv.ParseBool(val); err == nil {
		*dst = &b
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
