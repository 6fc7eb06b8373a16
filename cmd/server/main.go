package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/akeren/clothiq-api/config"
	"github.com/akeren/clothiq-api/domain"
	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/constants"
	"github.com/akeren/clothiq-api/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func wantsAutoMigrate(args []string) bool {
	return slices.ContainsFunc(args, func(arg string) bool {
		arg = strings.ToLower(arg)
		return arg == "--auto-migrate" || arg == "-m"
	})
}

func run(args []string) int {
	logger := log.NewLoggerWithJSONOutput()

	appConfig, err := config.LoadApplicationConfiguration(logger, wantsAutoMigrate(args))
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err)
		return 1
	}
	defer appConfig.Cleanup()

	domain.SetupCoreDomain(appConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server stopped", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, draining connections")
	timeout := utils.GetEnvDuration("SHUTDOWN_TIMEOUT", constants.DefaultShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("HTTP server shutdown error", "error", err)
		return 1
	}

	logger.Info("Graceful shutdown completed")
	return 0
}
