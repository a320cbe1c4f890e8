package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kyleking/askdb/cmd"
	"github.com/kyleking/askdb/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, suggestion := range errors.Suggestions(err) {
			fmt.Fprintf(os.Stderr, "  - %s\n", suggestion)
		}
		stop()
		os.Exit(1)
	}
}
