package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bilancio/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRenderCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "bilancio-render:", err)
		stop()
		os.Exit(1)
	}
}
