package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"markestedt/keydrip/config"
)

func main() {
	// Setup logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	configPath, _ := config.ConfigPath()
	slog.Info("Configuration loaded", "path", configPath)

	// Create agent
	agent, err := NewAgent(cfg)
	if err != nil {
		slog.Error("Failed to create agent", "error", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- agent.Run(ctx)
	}()

	// Tear the tray down on shutdown, whichever side initiates it
	go func() {
		select {
		case <-agent.Tray().WaitForQuit():
			cancel()
		case <-ctx.Done():
		}
		agent.Tray().Stop()
	}()

	// The tray owns the main goroutine until quit
	agent.Tray().Run()

	if err := <-errCh; err != nil {
		slog.Error("Agent error", "error", err)
		os.Exit(1)
	}

	slog.Info("keydrip stopped")
}
