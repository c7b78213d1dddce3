package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/upb/qruntime/internal/resolver"
)

// Exit codes.
const (
	exitOK               = 0
	exitError            = 1
	exitMissingParameter = 2
	exitExhausted        = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case resolver.IsMissingParameter(err):
		return exitMissingParameter
	case resolver.IsExhausted(err):
		return exitExhausted
	default:
		return exitError
	}
}
