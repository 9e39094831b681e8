// Package config loads runtime settings from environment variables and an
// optional YAML file, with stable defaults for every knob.
package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultHTTPAddr       = ":8090"
	defaultDBPath         = "/data/imsys.db"
	defaultEncryptionKey  = "change-me"
	defaultProbeAttempts  = 3
	defaultProbeDelay     = 2 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultPingCount      = 3
)

// Probe holds the retry budget for reachability checks. The attempt count is
// load-bearing for the root-cause walk: transient packet loss must be absorbed
// before a node is concluded unreachable.
type Probe struct {
	Attempts       int
	RetryDelay     time.Duration
	ConnectTimeout time.Duration
	PingCount      int
}

// Sweep holds cron specs for the periodic monitoring sweeps.
type Sweep struct {
	DeviceSpec     string
	SubscriberSpec string
	RouterSpec     string
}

// SMTP holds the outbound mail settings. Alerts skip mail when Host is empty.
type SMTP struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

type Config struct {
	HTTPAddr      string
	DBPath        string
	LogLevel      slog.Level
	EncryptionKey string
	Probe         Probe
	Sweep         Sweep
	SMTP          SMTP
}

// Load reads configuration with the IMSYS_ env prefix. An optional config
// file is taken from IMSYS_CONFIG_FILE.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMSYS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", defaultHTTPAddr)
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("log_level", "info")
	v.SetDefault("encryption_key", defaultEncryptionKey)
	v.SetDefault("probe.attempts", defaultProbeAttempts)
	v.SetDefault("probe.retry_delay", defaultProbeDelay)
	v.SetDefault("probe.connect_timeout", defaultConnectTimeout)
	v.SetDefault("probe.ping_count", defaultPingCount)
	v.SetDefault("sweep.device_spec", "@every 1m")
	v.SetDefault("sweep.subscriber_spec", "@every 2m")
	v.SetDefault("sweep.router_spec", "@every 1m")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "alerts@localhost")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")

	if file := strings.TrimSpace(v.GetString("config_file")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		HTTPAddr:      v.GetString("http_addr"),
		DBPath:        v.GetString("db_path"),
		LogLevel:      parseLogLevel(v.GetString("log_level")),
		EncryptionKey: v.GetString("encryption_key"),
		Probe: Probe{
			Attempts:       v.GetInt("probe.attempts"),
			RetryDelay:     v.GetDuration("probe.retry_delay"),
			ConnectTimeout: v.GetDuration("probe.connect_timeout"),
			PingCount:      v.GetInt("probe.ping_count"),
		},
		Sweep: Sweep{
			DeviceSpec:     v.GetString("sweep.device_spec"),
			SubscriberSpec: v.GetString("sweep.subscriber_spec"),
			RouterSpec:     v.GetString("sweep.router_spec"),
		},
		SMTP: SMTP{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			From:     v.GetString("smtp.from"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
		},
	}
	cfg.Probe = cfg.Probe.Normalize()
	return cfg, nil
}

// Normalize clamps nonsense values back to the documented defaults.
func (p Probe) Normalize() Probe {
	if p.Attempts <= 0 {
		p.Attempts = defaultProbeAttempts
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = defaultProbeDelay
	}
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = defaultConnectTimeout
	}
	if p.PingCount <= 0 {
		p.PingCount = defaultPingCount
	}
	return p
}

// DBDir returns the target directory for DBPath.
func (c Config) DBDir() string {
	return filepath.Dir(c.DBPath)
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
