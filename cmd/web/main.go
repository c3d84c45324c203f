// Command web serves the stock dashboard: the HTML upload page, the JSON API
// and the live WebSocket endpoint.
package main

import (
	"context"
	"log/slog"
	"os"

	"stockdash/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
