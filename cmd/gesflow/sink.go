package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditsink"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/httpserver"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/metrics"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

func newSinkCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Run the development audit log endpoint",
		Long: `Run an HTTP server implementing POST and GET /api/logs. Requests need a
bearer token minted with "gesflow token mint". Records are kept in memory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Sink.Addr = addr
			}
			return a.runSink(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides GESFLOW_SINK_ADDR)")
	return cmd
}

func (a *app) runSink(ctx context.Context) error {
	tokens, err := auditsink.NewTokenService(a.cfg.Sink.JWTSigningKey, a.cfg.Sink.Issuer)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var routerOpts []auditsink.RouterOption
	client, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
		routerOpts = append(routerOpts, auditsink.WithHealthCheck("redis", client))
	}

	store := auditsink.NewMemoryStore(a.cfg.Sink.Retention)
	router := auditsink.NewRouter(auditsink.New(store, tokens, a.logger, m), reg, a.logger, routerOpts...)
	srv := httpserver.New(a.cfg.Sink.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("audit sink listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sink server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.logger.Info("audit sink stopped", "records", store.Len())
	return nil
}
