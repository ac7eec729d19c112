// Command tacticsdb inspects and edits the data directory of a tactics game
// project: integrity checks, catalog statistics, cascading renames, guarded
// deletes, SQL snapshots and live reloading.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var exitFunc = os.Exit

// errReported marks a failure whose details were already printed.
var errReported = errors.New("reported")

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		if _, writeErr := fmt.Fprintf(stderr, "tacticsdb: %v\n", err); writeErr != nil {
			return 1
		}
	}
	var usage usageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}
