// Package cli implements the stackaudit command-line interface.
//
// This package provides commands for aggregating dependency stacks into
// audit reports, serving the HTTP API, browsing stored reports, and
// rendering license-conflict graphs. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - aggregate: Run one aggregation request from a JSON file or stdin
//   - serve: Run the HTTP API server
//   - report: Show or browse stored aggregation reports
//   - graph: Render a report's license conflicts as DOT or SVG
//   - cache: Manage the metadata response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and
// --config for a TOML configuration file; environment variables override
// file values.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/buildinfo"
	"github.com/stackaudit/stackaudit/pkg/cache"
	"github.com/stackaudit/stackaudit/pkg/config"
	"github.com/stackaudit/stackaudit/pkg/integrations/gremlin"
	"github.com/stackaudit/stackaudit/pkg/integrations/licenses"
	"github.com/stackaudit/stackaudit/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "stackaudit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Stackaudit aggregates dependency stacks into license audit reports",
		Long:         `Stackaudit enriches resolved dependency stacks with registry metadata from a graph store, scores the combined license picture, and produces a per-manifest audit report with conflict, unknown-license, and outlier findings.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to TOML config file")

	root.AddCommand(c.aggregateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configured TOML file plus environment overrides.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// newAggregator assembles the engine from config. With noCache the
// metadata cache is disabled regardless of configuration.
func (c *CLI) newAggregator(ctx context.Context, cfg config.Config, persist, noCache bool) (*aggregator.Aggregator, store.Store, error) {
	backend, err := newCache(ctx, cfg, noCache)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		backend = cache.NewNullCache()
	}

	graph := gremlin.NewClient(cfg.Graph.URL, backend, cfg.Cache.TTL.Duration)
	analyzer := licenses.NewClient(cfg.License.URL)

	var reports store.Store
	if persist {
		reports, err = store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	return aggregator.New(graph, analyzer, reports, c.Logger), reports, nil
}

// openStore connects to the configured report store for read paths.
func (c *CLI) openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	return store.NewMongoStore(ctx, store.MongoConfig{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
	})
}

// newCache builds the metadata cache backend named by the config.
func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "", "null":
		return cache.NewNullCache(), nil
	case "file":
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	default:
		return cache.NewNullCache(), nil
	}
}

// cacheDir returns the cache directory using XDG standard (~/.cache/stackaudit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
