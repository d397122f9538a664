package main

import (
	"context"
	"os"

	"github.com/janisto/hello-fixture/internal/cli"
	"github.com/janisto/hello-fixture/internal/common"
	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	if err := common.Err(); err != nil {
		appmiddleware.LogError(context.Background(), "logger init error", err)
	}

	err := cli.NewRoot(Version).Execute()
	if err != nil {
		appmiddleware.LogError(context.Background(), "hello-fixture failed", err)
	}
	// stdout may not support fsync; a sync error here is not worth reporting.
	_ = common.Sync()
	if err != nil {
		os.Exit(1)
	}
}
