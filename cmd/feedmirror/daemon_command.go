package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"feedmirror/internal/daemon"
	"feedmirror/internal/logging"
	"feedmirror/internal/publisher"
	"feedmirror/internal/store"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the mirror daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d := daemon.New(cfg, st, publisher.New(cfg), logger)
			if err := d.Start(runCtx); err != nil {
				return err
			}

			<-runCtx.Done()
			logger.Info("shutdown signal received", logging.String(logging.FieldEventType, "shutdown"))
			d.Stop()
			return nil
		},
	}
}
