package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/jwtly10/go-postjson/internal/cli"
)

func main() {
	// Setup signal handling so an interrupted transfer still releases everything
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
