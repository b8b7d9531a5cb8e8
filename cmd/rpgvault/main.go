package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Manual signal handling, not signal.NotifyContext: a second Ctrl+C
	// forces an exit instead of being swallowed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nForced exit")
		os.Exit(1)
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCodeFor(err))
	}
}
