// Package config loads deployment settings from a TOML file with
// environment-variable overrides.
//
// Every field has a working default, so a missing config file is not an
// error: the zero-configuration path talks to local service endpoints
// with caching disabled, which is what tests and dry runs want.
// Environment variables override file values, so containerized
// deployments can ship one base file and vary endpoints per environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/stackaudit/stackaudit/pkg/errors"
)

// Duration wraps time.Duration for TOML decoding ("30m", "12h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the full deployment configuration.
type Config struct {
	Graph   GraphConfig   `toml:"graph"`
	License LicenseConfig `toml:"license"`
	Mongo   MongoConfig   `toml:"mongo"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
}

// GraphConfig locates the graph metadata store.
type GraphConfig struct {
	// URL is the Gremlin HTTP endpoint.
	URL string `toml:"url"`
}

// LicenseConfig locates the license scoring service.
type LicenseConfig struct {
	// URL is the service root; endpoint paths are appended per request.
	URL string `toml:"url"`
}

// MongoConfig configures report persistence.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// CacheConfig selects and configures the metadata cache backend.
type CacheConfig struct {
	// Backend is one of "null", "file", or "redis".
	Backend string `toml:"backend"`

	// Dir is the file backend's directory. Empty means a stackaudit
	// subdirectory of the user cache dir.
	Dir string `toml:"dir"`

	// TTL bounds entry staleness. Zero means entries never expire.
	TTL Duration `toml:"ttl"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the zero-configuration defaults.
func Default() Config {
	return Config{
		Graph:   GraphConfig{URL: "http://localhost:8182"},
		License: LicenseConfig{URL: "http://localhost:8090"},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "stackaudit",
			Collection: "reports",
		},
		Cache: CacheConfig{
			Backend:   "null",
			TTL:       Duration{12 * time.Hour},
			RedisAddr: "localhost:6379",
		},
		Server: ServerConfig{ListenAddr: ":8080"},
	}
}

// Load reads the config file at path and applies environment overrides.
// An empty path skips the file; a missing file at an explicit path is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "reading config file %s", path)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parsing config file %s", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Graph.URL, "STACKAUDIT_GRAPH_URL")
	setString(&c.License.URL, "STACKAUDIT_LICENSE_URL")
	setString(&c.Mongo.URI, "STACKAUDIT_MONGO_URI")
	setString(&c.Mongo.Database, "STACKAUDIT_MONGO_DATABASE")
	setString(&c.Mongo.Collection, "STACKAUDIT_MONGO_COLLECTION")
	setString(&c.Cache.Backend, "STACKAUDIT_CACHE_BACKEND")
	setString(&c.Cache.Dir, "STACKAUDIT_CACHE_DIR")
	setString(&c.Cache.RedisAddr, "STACKAUDIT_REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "STACKAUDIT_REDIS_PASSWORD")
	setString(&c.Server.ListenAddr, "STACKAUDIT_LISTEN_ADDR")

	if v := os.Getenv("STACKAUDIT_CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = Duration{ttl}
		}
	}
	if v := os.Getenv("STACKAUDIT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Cache.RedisDB = db
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
