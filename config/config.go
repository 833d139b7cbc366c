package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds every configurable value for the bridge.
type Config struct {
	Metabase MetabaseConfig
	Pachca   PachcaConfig
	Schedule ScheduleConfig
	Storage  StorageConfig

	// Observability
	LogLevel    string // debug|info|warn|error
	MetricsAddr string // e.g. ":9100"; empty disables the /metrics server

	// HTTPTimeout bounds every outbound request. Zero means no timeout.
	HTTPTimeout time.Duration
}

// MetabaseConfig describes the BI service the metrics are pulled from.
type MetabaseConfig struct {
	URL           string // e.g. https://metabase.example.com
	Username      string
	Password      string
	BasicAuthUser string // transport-level basic auth in front of Metabase
	BasicAuthPass string
	CardIDs       []int // collected in this order
}

// PachcaConfig describes where the report is posted.
type PachcaConfig struct {
	PostURL   string
	Token     string
	ChannelID int64
}

// ScheduleConfig holds the two daily triggers. Each spec is a five-field cron
// expression evaluated in the paired IANA time zone.
type ScheduleConfig struct {
	CollectCron     string
	CollectTimezone string
	PublishCron     string
	PublishTimezone string
}

// StorageConfig selects the counter cache backend.
type StorageConfig struct {
	Driver          string // json|sqlite
	CachePath       string // JSON file, e.g. "./cache.json"
	DBPath          string // SQLite file, e.g. "./data/activity-bot.db"
	PersistSnapshot bool   // sqlite only: keep the last snapshot across restarts
}

// Env names used by the original deployment; bound next to the derived ones.
var legacyEnv = map[string][]string{
	"metabase.username":      {"METABASE_USERNAME", "USERNAME"},
	"metabase.password":      {"METABASE_PASSWORD", "PASSWORD"},
	"metabase.basicauthuser": {"METABASE_BASICAUTHUSER", "BASIC_AUTH_USER"},
	"metabase.basicauthpass": {"METABASE_BASICAUTHPASS", "BASIC_AUTH_PASS"},
	"pachca.token":           {"PACHCA_TOKEN", "BEARER_TOKEN"},
}

// Load reads configuration from (in decreasing priority):
//  1. environment variables (e.g. METABASE_URL, BEARER_TOKEN), including the
//     ones exported from ./.env when that file exists
//  2. the file passed in configFile, or ./configs/config.yaml if it exists
//  3. built-in defaults
//
// It returns a fully populated *Config or an error.
func Load(configFile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		// Optional yaml file - useful for local dev or a mounted ConfigMap
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil && !isMissing(err) {
			return nil, fmt.Errorf("read configs/config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("MetricsAddr", "")
	v.SetDefault("HTTPTimeout", 0)

	v.SetDefault("metabase.url", "")
	v.SetDefault("metabase.username", "")
	v.SetDefault("metabase.password", "")
	v.SetDefault("metabase.basicauthuser", "")
	v.SetDefault("metabase.basicauthpass", "")
	v.SetDefault("metabase.cardids", []int{601, 602, 613, 612, 614, 604, 610, 611, 603, 605})

	v.SetDefault("pachca.posturl", "https://api.pachca.com/api/shared/v1/messages")
	v.SetDefault("pachca.token", "")
	v.SetDefault("pachca.channelid", 24592837)

	v.SetDefault("schedule.collectcron", "50 23 * * *")
	v.SetDefault("schedule.collecttimezone", "Etc/UTC")
	v.SetDefault("schedule.publishcron", "0 9 * * *")
	v.SetDefault("schedule.publishtimezone", "Europe/Moscow")

	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.cachepath", "./cache.json")
	v.SetDefault("storage.dbpath", "./data/activity-bot.db")
	v.SetDefault("storage.persistsnapshot", false)
}

// isMissing reports whether a read error only means the optional file is
// absent.
func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// loadDotEnv exports the variables of an optional .env file into the process
// environment without overriding variables that are already set.
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !isMissing(err) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Validate checks the values the bridge cannot run without.
func (c *Config) Validate() error {
	if c.Metabase.URL == "" {
		return fmt.Errorf("metabase.url (METABASE_URL) must not be empty")
	}
	if len(c.Metabase.CardIDs) == 0 {
		return fmt.Errorf("metabase.cardids must list at least one card")
	}
	if c.Pachca.PostURL == "" {
		return fmt.Errorf("pachca.posturl must not be empty")
	}
	if c.Pachca.ChannelID == 0 {
		return fmt.Errorf("pachca.channelid must not be zero")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("httptimeout must not be negative")
	}
	for _, tz := range []string{c.Schedule.CollectTimezone, c.Schedule.PublishTimezone} {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("unknown time zone %q: %w", tz, err)
		}
	}
	switch c.Storage.Driver {
	case "json":
		if c.Storage.CachePath == "" {
			return fmt.Errorf("storage.cachepath must not be empty")
		}
		if c.Storage.PersistSnapshot {
			return fmt.Errorf("storage.persistsnapshot requires the sqlite driver")
		}
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.dbpath must not be empty")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want json or sqlite)", c.Storage.Driver)
	}
	return nil
}
