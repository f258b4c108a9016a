package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chanquant/logx"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Fprintln(os.Stderr, "\nReceived stop signal. Shutting down gracefully...")
		logx.LogCancelled("interrupted")
		cancel()
	}()

	if err := Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, logx.Error("error: "+err.Error()))
		os.Exit(1)
	}
}
