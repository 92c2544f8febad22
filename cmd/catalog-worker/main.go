// Package main provides the entry point for the catalog reconciliation worker.
package main

import (
	"context"
	"os"
	"time"

	"github.com/hmreg/catalog-reconciler/cmd/catalog-worker/app"
)

var version = "dev"

func main() {
	application := app.New(version)

	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	err := application.Execute(ctx, os.Args[1:])

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	application.Shutdown(shutdownCtx)

	app.ExitOnError(err)
}
