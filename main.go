// icbd - an Internet Citizen's Band chat server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"icbd/cmd"
	"icbd/internal/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "icbd: %v\n", err)
		cancel()
		os.Exit(errors.ExitCode(err))
	}
}
