package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kenjpais/diagram-generator/cmd/diagen/commands"
	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.NewRootCmd().ExecuteContext(ctx)
	stop()
	logger.Cleanup()
	if err != nil {
		display.Error(err)
		os.Exit(1)
	}
}
