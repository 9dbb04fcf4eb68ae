package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	appLog "sheetcal/internal/log"
)

func main() {
	// Root context with cancellation on SIGINT/SIGTERM. It bounds remote
	// fetches and stops the feed server.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		appLog.Error("sheetcal failed", err)
		stop()
		os.Exit(1)
	}
}
