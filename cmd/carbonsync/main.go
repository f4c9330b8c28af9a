package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/streetvisit/carbon-recycling-platform/internal/logging"
)

const exitCanceled = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(func() error { return Execute(ctx) }, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

func runMain(execute func() error, stderr io.Writer) int {
	err := execute()
	if err == nil {
		return 0
	}
	code, silent := exitStatus(err)
	if !silent {
		message := "command failed"
		if code == exitCanceled {
			message = "command canceled"
		}
		emitCommandError(err, message, code, stderr)
	}
	return code
}

// exitStatus maps err to a process exit code and whether it was already
// reported.
func exitStatus(err error) (code int, silent bool) {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code, ee.silent
	}
	if errors.Is(err, context.Canceled) {
		return exitCanceled, false
	}
	return 1, false
}

func emitCommandError(err error, message string, exitCode int, stderr io.Writer) {
	var ee *exitError
	if errors.As(err, &ee) && ee.err != nil {
		err = ee.err
	}

	ctx := currentCommandExecutionContext()
	if !ctx.UsesStructuredLog {
		if exitCode == exitCanceled {
			fmt.Fprintln(stderr, "canceled")
			return
		}
		fmt.Fprintln(stderr, err)
		return
	}

	attrs := []any{"exit_code", exitCode}
	if failures := joinedMessages(err); len(failures) > 1 {
		attrs = append(attrs, "errors", failures)
	} else {
		attrs = append(attrs, "error", err)
	}
	loggerForFatalPath(ctx, stderr).Error(message, attrs...)
}

// joinedMessages splits an errors.Join result, as returned for failed
// connectors, into one message per error.
func joinedMessages(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil
	}
	var out []string
	for _, e := range joined.Unwrap() {
		if e != nil {
			out = append(out, e.Error())
		}
	}
	return out
}

func loggerForFatalPath(ctx commandExecutionContext, stderr io.Writer) *slog.Logger {
	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	return logging.NewLogger(cfg, stderr, ctx.CommandPath)
}
