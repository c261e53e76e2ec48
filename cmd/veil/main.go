package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/rules"
	"github.com/veilhq/veil/internal/server"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("veil %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck(cfg.Server.Port)
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting veil",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Rules store: optional. Without one the cache serves fallback rules.
	var store rules.Store
	if cfg.Rules.RedisURL != "" {
		redisStore, err := rules.NewRedisStore(cfg.Rules, log.WithComponent("rules").Logger)
		if err != nil {
			log.Fatal("Failed to create rules store", zap.Error(err))
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		log.Warn("No rules store configured, serving fallback rules")
	}

	cache := rules.NewCache(store, cfg.Rules.CacheTTL, cfg.Rules.FallbackSalt, log.WithComponent("rules").Logger)

	// Audit sink: optional. Without one requests succeed with auditWritten=false.
	var sink audit.Sink
	if cfg.Audit.Enabled {
		pgSink, err := audit.NewPostgresSink(cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			log.Fatal("Failed to create audit sink", zap.Error(err))
		}
		defer pgSink.Close()
		pgSink.StartPurgeLoop(cfg.Audit.PurgeInterval)
		sink = pgSink
	} else {
		log.Warn("Audit sink disabled, requests will not be audited")
	}

	committer := audit.NewCommitter(sink, cfg.Audit.Retention, log.WithComponent("audit").Logger)

	// Create HTTP server
	srv := server.New(cfg, log, cache, committer)

	// Watch for config file edits. Server and store settings need a
	// restart; the watch exists to make that visible in the logs.
	config.Watch(cfg, func(newCfg *config.Config) {
		log.Info("Configuration file changed, restart to apply",
			zap.Int("port", newCfg.Server.Port),
			zap.Duration("rules_cache_ttl", newCfg.Rules.CacheTTL),
		)
	})

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(port int) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
