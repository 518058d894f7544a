package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/omochice/toy-handle-chat/internal/chat"
	"github.com/omochice/toy-handle-chat/internal/config"
	"github.com/omochice/toy-handle-chat/internal/logging"
	"github.com/omochice/toy-handle-chat/internal/server"
)

const shutdownTimeout = 2 * time.Second

func main() {
	cfg, err := config.ParseServer(filepath.Base(os.Args[0]), os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		if !errors.Is(err, chat.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	// The handle prompt and the interactive replies share one stdin reader.
	stdin := chat.NewLineReader(os.Stdin)

	handle := chat.Handle(cfg.Handle)
	if handle == "" {
		if handle, err = server.PromptHandle(stdin, os.Stdout, cfg.MaxHandle); err != nil {
			logger.Fatal("Failed to read handle", zap.Error(err))
		}
	}

	var responder server.Responder = server.Echo{}
	if cfg.Mode == config.ModeInteractive {
		responder = &server.Interactive{
			In:         stdin,
			Out:        os.Stdout,
			Handle:     handle,
			MaxMessage: cfg.MaxMessage,
		}
	}

	srv := server.New(cfg, handle, responder, os.Stdout, logger)
	if err := srv.Listen(); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	fmt.Println("The server is ready to receive incoming messages")

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve()
	}()

	// Wait for either error or shutdown signal
	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down...", zap.Stringer("signal", sig))
		// An interactive reply blocked on stdin keeps Stop from returning.
		stopped := make(chan struct{})
		go func() {
			srv.Stop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(shutdownTimeout):
			logger.Warn("Shutdown timed out")
		}
	}

	logger.Info("Server stopped")
}
