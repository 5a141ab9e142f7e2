// fileshell - a sandboxed remote file-operation service and client,
// served over TCP streams and UDP datagrams.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fileshell/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fileshell: %v\n", err)
		os.Exit(1)
	}
}
