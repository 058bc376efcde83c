// Command clinic-catalog browses and serves the clinic catalog API: a
// terminal doctors browser, JSON dumps of the collections and a caching
// proxy with health and metrics endpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/globalmed/clinic-catalog/internal/config"
	"github.com/globalmed/clinic-catalog/pkg/client"
	"github.com/globalmed/clinic-catalog/pkg/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg    config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clinic-catalog",
	Short: "Clinic catalog client: browse doctors, dump collections, run the caching proxy",
	Long: `clinic-catalog talks to the clinic REST API.

Responses are cached in Redis and the API throttle window is tracked there
when redis_addr is configured. Settings come from a TOML file and CLINIC_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		cfg = loaded

		logger = logging.Setup(logging.Config{
			Level:   logging.ParseLevel(cfg.LogLevel),
			Pretty:  cfg.LogPretty,
			Output:  cmd.ErrOrStderr(),
			Service: "clinic-catalog",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/clinic-catalog/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error, disabled")

	rootCmd.AddCommand(browseCmd, dumpCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// connectRedis returns nil when Redis is not configured. A configured but
// unreachable Redis is an error only when required is set; otherwise the
// client runs without cache and rate limit tracking.
func connectRedis(ctx context.Context, c config.Config, required bool) (*redis.Client, error) {
	if strings.TrimSpace(c.RedisAddr) == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: c.RedisAddr,
		DB:   c.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		if required {
			return nil, fmt.Errorf("connect to redis at %s: %w", c.RedisAddr, err)
		}
		logger.Warn().Err(err).Str("addr", c.RedisAddr).Msg("Redis unavailable, running without cache")
		return nil, nil
	}

	logger.Info().Str("addr", c.RedisAddr).Int("db", c.RedisDB).Msg("Connected to Redis")
	return rdb, nil
}

// newAPIClient builds the API client from the loaded config.
func newAPIClient(c config.Config, rdb *redis.Client) (*client.Client, error) {
	clientCfg := client.DefaultConfig(c.BaseURL, c.UserAgent)
	clientCfg.Locale = c.Locale
	clientCfg.Timeout = c.RequestTimeout
	clientCfg.MaxRetries = c.MaxRetries
	if rdb != nil {
		clientCfg.Redis = rdb
	}

	apiClient, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}
	return apiClient, nil
}
