package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/app/bootstrap"
	"pagecraft/app/internal/platform/config"
	applog "pagecraft/app/internal/platform/log"
)

// Version is stamped at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}
	logger.SetOutput(os.Stderr)

	env, err := newEnvironment(ctx, *cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := env.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("closing stores")
		}
	}()

	return newCLIApp(env).RunContext(ctx, args)
}

// newEnvironment opens the stores the commands operate on.
func newEnvironment(ctx context.Context, cfg config.Config, logger *logrus.Logger, out io.Writer) (*environment, error) {
	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, eris.Wrap(err, "opening stores")
	}

	env, err := buildEnvironment(cfg, stores, logger, out)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	return env, nil
}
