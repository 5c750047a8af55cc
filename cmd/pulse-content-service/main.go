package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/aventra/api/pulse-content-service/internal/bootstrap"
	"gitlab.com/aventra/api/pulse-content-service/pkg/contextkeys"
)

func main() {
	ctx := context.Background()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// The structured logger is not available if bootstrap itself failed.
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		fmt.Printf("Application run failed: %v\n", err)
		os.Exit(1)
	}
}
