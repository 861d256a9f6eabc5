package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	foundryerrors "github.com/alexisbeaulieu97/foundry/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err))
}

// exitError carries a process exit code without an extra message; the build
// summary has already been printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	fmt.Fprintln(os.Stderr, err)
	if foundryerrors.IsConfiguration(err) {
		fmt.Fprintln(os.Stderr, "Run 'foundry tasks' to see the tasks defined in this workspace.")
	}
	return 1
}
