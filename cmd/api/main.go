// Package main provides the entry point for the PaperMint server application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/papermint/papermint-server/internal/di"
	"github.com/papermint/papermint-server/internal/di/providers"
	"github.com/papermint/papermint-server/internal/logger"
	boardsync "github.com/papermint/papermint-server/internal/sync"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Background loops run until shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sseHandle := do.MustInvoke[*providers.SSEManagerHandle](injector)
	go sseHandle.Manager.Start(ctx)

	coordinator := do.MustInvoke[*boardsync.Coordinator](injector)
	go coordinator.Run(ctx)

	watcherHandle := do.MustInvoke[*providers.BlobWatcherHandle](injector)
	go watcherHandle.Start(ctx)

	// Warm the local preview slot so subscribers have data before the
	// first listing request triggers a full refresh.
	localHandle := do.MustInvoke[*providers.LocalStoreHandle](injector)
	if err := localHandle.RefreshPreviews(ctx); err != nil {
		log.Warn("Failed to load local board previews", "error", err)
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")
	cancel()

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("See you space cowboy...")
}
