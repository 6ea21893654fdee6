// main.go
// In main.go we wire everything together: load configuration, build the
// relay, start the manager loop and the HTTP server, and shut both down on
// SIGINT or SIGTERM.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"presence-relay/internal/config"
	"presence-relay/internal/logger"
)

func main() {
	configPath := flag.String("config", "relay.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Auth.Secret == config.Default().Auth.Secret {
		log.Warn("using the built-in JWT secret; set RELAY_JWT_SECRET")
	}

	rl := newRelay(cfg, log)
	go rl.manager.start()

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           rl.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("relay listening", "addr", cfg.Server.Address, "defaultRoom", cfg.Rooms.Default)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
			"client-manager": func(ctx context.Context) error {
				return rl.shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Info("relay stopped", "exitCode", exitCode)
	os.Exit(exitCode)
}

func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
