package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/omochice/toy-handle-chat/internal/client"
)

func main() {
	opts := client.Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
	os.Exit(client.Main(context.Background(), filepath.Base(os.Args[0]), os.Args[1:], opts, os.Stderr))
}
