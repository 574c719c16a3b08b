package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kolah/codepilot/internal/config"
	"github.com/kolah/codepilot/internal/logging"
	"github.com/kolah/codepilot/internal/server"
	"github.com/spf13/cobra"
)

func ServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	config.BindServerFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format, server.ServiceName)

	rt, err := newRuntime(cfg, log)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:       cfg.Server,
		Orchestrator: rt.orch,
		Logger:       log,
		Version:      Version,
		AIEnabled:    rt.ai.Enabled(),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
