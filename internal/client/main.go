package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/config"
	"github.com/omochice/toy-handle-chat/internal/logging"
)

// Diagnostic returns the message shown to the user for a failed session.
// Usage errors return "" because the usage text has already been printed.
func Diagnostic(err error) string {
	switch {
	case err == nil, errors.Is(err, chat.ErrUsage):
		return ""
	case errors.Is(err, chat.ErrResolve):
		return fmt.Sprintf("getaddrinfo error: %v\nDid you enter the correct IP/Port?", err)
	case errors.Is(err, chat.ErrSocket):
		return fmt.Sprintf("Error creating socket: %v", err)
	case errors.Is(err, chat.ErrConnect):
		return fmt.Sprintf("Error connecting socket: %v", err)
	case errors.Is(err, chat.ErrHandshake):
		return fmt.Sprintf("Error exchanging handles with host: %v", err)
	case errors.Is(err, chat.ErrSend):
		return fmt.Sprintf("Error sending data to host: %v", err)
	case errors.Is(err, chat.ErrReceive):
		return fmt.Sprintf("Error when receiving data from host: %v", err)
	case errors.Is(err, chat.ErrInput):
		return fmt.Sprintf("Error reading input: %v", err)
	default:
		return err.Error()
	}
}

// ExitCode maps a session result to the process exit status.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 1
}

// Main parses args, runs one session and returns the exit status.
func Main(ctx context.Context, name string, args []string, opts Options, stderr io.Writer) int {
	cfg, err := config.ParseClient(name, args, stderr)
	if err != nil {
		return fail(stderr, err)
	}

	if opts.Logger == nil {
		logger, err := logging.New(cfg.LogLevel, stderr)
		if err != nil {
			return fail(stderr, err)
		}
		defer logger.Sync()
		opts.Logger = logger
	}

	_, err = New(cfg, opts).Run(ctx)
	return fail(stderr, err)
}

func fail(stderr io.Writer, err error) int {
	if msg := Diagnostic(err); msg != "" && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(stderr, msg)
	}
	return ExitCode(err)
}
