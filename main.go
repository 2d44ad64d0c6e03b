// stompcat - An interactive console client for STOMP message brokers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stompcat/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "stompcat: %v\n", err)
		os.Exit(1)
	}
}
