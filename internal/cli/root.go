// Package cli wires configuration, logging and the servers into a cobra command.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/janisto/hello-fixture/internal/admin"
	"github.com/janisto/hello-fixture/internal/common"
	"github.com/janisto/hello-fixture/internal/config"
	"github.com/janisto/hello-fixture/internal/fixture"
	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
	"github.com/janisto/hello-fixture/internal/server"
)

// NewRoot returns the hello-fixture command. Running it without a
// subcommand serves the fixture until SIGINT or SIGTERM.
func NewRoot(version string) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   fixture.Name,
		Short: "Serve a static Hello world! response on $PORT",
		Long: `hello-fixture answers every request on 0.0.0.0:$PORT with
200 text/plain "Hello world!". PORT is required. Set ADMIN_PORT to also
serve health and status endpoints for operators.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), version, config.Options{ConfigFile: configFile})
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "server config file (.yml, .yaml or .toml); overrides "+config.EnvConfigFile)
	cmd.AddCommand(newVersion(version))

	return cmd
}

func serve(ctx context.Context, version string, opts config.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	if err := common.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	appmiddleware.LogInfo(ctx, "configuration loaded",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("adminPort", cfg.AdminPort),
		zap.String("configFile", cfg.ConfigFile),
		zap.String("version", version),
	)

	app, err := fixture.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Run(gctx)
	})
	if cfg.AdminEnabled() {
		adminSrv := server.New(cfg.Host, cfg.AdminPort,
			admin.NewHandler(fixture.Name, version, app),
			server.OptionsFromConfig("admin", cfg))
		g.Go(func() error {
			return adminSrv.Run(gctx)
		})
	}
	return g.Wait()
}
