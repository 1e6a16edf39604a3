package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viant/imgsim/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve similarity queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			j, err := a.openJournal(ctx)
			if err != nil {
				return err
			}
			var history server.History
			if j != nil {
				defer j.Close()
				history = j
			}
			svc, err := a.newService(j)
			if err != nil {
				return err
			}
			if err := svc.Load(a.cfg.IndexDir); err != nil {
				a.logger.Warn("serving without an index until a rebuild succeeds", "dir", a.cfg.IndexDir, "error", err)
			}

			srv := server.New(svc, history, server.Config{
				Addr:         a.cfg.Server.Addr,
				TopK:         a.cfg.Server.TopK,
				MaxUploadMB:  a.cfg.Server.MaxUploadMB,
				QueryTimeout: a.cfg.Server.QueryTimeout,
				Dataset:      a.cfg.Dataset,
				IndexDir:     a.cfg.IndexDir,
				Frontend:     a.cfg.Server.Frontend,
			}, a.logger)

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", ":8000", "listen address")
	a.bind(cmd.Flags().Lookup("addr"), "server.addr")
	return cmd
}
