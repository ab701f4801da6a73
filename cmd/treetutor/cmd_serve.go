package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leengari/tree-tutor/internal/network"
	"github.com/leengari/tree-tutor/internal/session"
)

func newServeCmd(configPath *string) *cobra.Command {
	var httpAddr, tcpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve sessions over HTTP and TCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeFn, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			if cmd.Flags().Changed("http") {
				cfg.HTTP = httpAddr
			}
			if cmd.Flags().Changed("tcp") {
				cfg.TCP = tcpAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry, err := session.NewRegistry(cfg.DataDir, cfg.Sessions.Capacity, cfg.Sessions.TTL,
				session.NewLoggingObserver())
			if err != nil {
				return err
			}
			defer func() {
				slog.Info("shutting down - releasing sessions")
				if err := registry.Close(); err != nil {
					slog.Error("shutdown failed", slog.Any("error", err))
				}
			}()

			return serve(ctx, cfg.HTTP, cfg.TCP, network.NewHandler(registry))
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (empty disables HTTP)")
	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "TCP listen address (empty disables TCP)")
	return cmd
}

func serve(ctx context.Context, httpAddr, tcpAddr string, handler *network.Handler) error {
	var httpListener, tcpListener net.Listener
	var err error

	if httpAddr != "" {
		if httpListener, err = net.Listen("tcp", httpAddr); err != nil {
			return err
		}
	}
	if tcpAddr != "" {
		if tcpListener, err = net.Listen("tcp", tcpAddr); err != nil {
			if httpListener != nil {
				httpListener.Close()
			}
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if httpListener != nil {
		g.Go(func() error { return network.ServeHTTP(ctx, httpListener, handler) })
	}
	if tcpListener != nil {
		g.Go(func() error { return network.Serve(ctx, tcpListener, handler) })
	}
	return g.Wait()
}
