//	@title			Webapp File API
//	@version		1.0
//	@description	Uploads files to object storage and tracks their metadata.
//
//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
