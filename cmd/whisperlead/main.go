package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/TanaroSch/whisper-lead/internal/app"
	"github.com/TanaroSch/whisper-lead/internal/config"
	"github.com/TanaroSch/whisper-lead/internal/logging"
)

const version = "v2.0.0"

func main() {
	cfgPath, err := config.ResolvePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config path: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(filepath.Dir(cfgPath), os.Getenv(config.EnvLogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging to console only: %v\n", err)
		logger = logging.NewConsole()
	}
	defer logger.Close()

	log := logger.Zerolog()
	log.Info().Str("version", version).Str("config", cfgPath).Msg("388 Client starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle any panics during execution
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Fatal error")
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			logger.Close()
			os.Exit(1)
		}
	}()

	application := app.New(ctx, cfgPath, version, log)
	application.Run()
}
