// Command statehead is the command line client of the head.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DeBrosOfficial/statehead/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
