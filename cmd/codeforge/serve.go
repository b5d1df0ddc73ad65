package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/anvilworks/codeforge/internal/agents"
	"github.com/anvilworks/codeforge/internal/config"
	"github.com/anvilworks/codeforge/internal/llm"
	"github.com/anvilworks/codeforge/internal/server"
	"github.com/anvilworks/codeforge/internal/status"
	"github.com/anvilworks/codeforge/internal/workflow"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Start the code-generation agent service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			app := fx.New(
				fx.NopLogger,
				fx.Supply(cfg),
				fx.Provide(
					newCompleter,
					newEngine,
					newServer,
					status.NewStore,
				),
				fx.Invoke(registerServer),
			)
			app.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newCompleter(cfg config.Config) (llm.Completer, error) {
	return llm.New(context.Background(), llmConfig(cfg), llmRetryConfig(cfg))
}

func newEngine(completer llm.Completer, store *status.Store) *workflow.Engine {
	return workflow.NewEngine(
		agents.NewPlanner(completer),
		agents.NewCoder(completer),
		agents.NewTester(completer),
		store,
	)
}

func newServer(cfg config.Config, engine *workflow.Engine, store *status.Store) *server.Server {
	return server.New(engine, store, cfg.Workflow.MaxAttempts, llm.Configured(llmConfig(cfg)))
}

func registerServer(lc fx.Lifecycle, cfg config.Config, srv *server.Server) {
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Routes(),
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			listener, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return err
			}
			log.Info().Str("addr", listener.Addr().String()).Msg("http server listening")
			go func() {
				if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("http server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}
