package main

import (
	"os/signal"
	"syscall"

	"github.com/jonathan/placement-prep/internal/config"
	"github.com/jonathan/placement-prep/internal/server"
	"github.com/jonathan/placement-prep/internal/server/ratelimit"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes sessions, agent results, readiness, reports, mock interviews and the practice game.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from PORT or config, else 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load JWT config")
	}

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv, err := server.New(server.Config{
		Port:       port,
		SessionTTL: a.cfg.SessionTTL.Std(),
		JWT:        jwtConfig,
		RateLimit:  ratelimit.LoadConfig(),
	}, server.Deps{
		LLM:       a.llm,
		Runner:    a.runner,
		Generator: a.generator,
		Logger:    a.logger,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	return srv.Start(ctx)
}
