// Knockd - a multi-client knock-knock joke server and its line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"knockd/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "knockd: %v\n", err)
		os.Exit(1)
	}
}
