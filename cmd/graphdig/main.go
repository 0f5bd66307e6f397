// Command graphdig searches JSON and YAML documents as object graphs.
//
//	graphdig search config.yaml --term token --mode keys
//	graphdig explore state.json 'root.users[0]' --term mail
//	graphdig expand state.json root.users --limit 20
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
