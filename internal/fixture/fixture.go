// Package fixture is the application served on PORT: a logging middleware
// stack in front of a single adapter mapped at the root.
package fixture

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/hello-fixture/internal/adapter"
	"github.com/janisto/hello-fixture/internal/config"
	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
	"github.com/janisto/hello-fixture/internal/server"
)

// Name identifies the application server in logs and the admin API.
const Name = "hello-fixture"

// Configure is the fixture's configuration block: request logging, then "/"
// mapped to the hello adapter. Every path and method ends at that adapter.
func Configure(b *server.Builder) {
	b.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		appmiddleware.RequestLogger(),
		appmiddleware.AccessLogger(),
	)
	b.Map("/", adapter.Hello())
}

// New prepares the fixture server from cfg without binding it.
func New(cfg config.Config) (*server.Server, error) {
	return server.Prepare(cfg.Host, cfg.Port, server.OptionsFromConfig(Name, cfg), Configure)
}

// Start runs the fixture on bindHost:bindPort until ctx is cancelled.
func Start(ctx context.Context, bindHost string, bindPort int) error {
	return server.Start(ctx, bindHost, bindPort, Configure)
}
