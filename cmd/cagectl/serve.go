package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"time"

	"cagecore/internal/adapters/cages"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cage HTTP API and operation metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           a.router(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			ctx := cmd.Context()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			a.logger.Info("cage api listening", "addr", addr)
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to COLONYCORE_HTTP_ADDR)")
	return cmd
}

// router mounts the cage API and the metrics endpoint of the configured
// driver: /metrics for prometheus, /debug/vars for expvar. Identity comes from
// headers set by the fronting proxy.
func (a *app) router() http.Handler {
	r := mux.NewRouter()
	switch {
	case a.registry != nil:
		r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	case a.expvarRec != nil:
		r.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)
	}
	r.PathPrefix("/api/v1/").Handler(cages.NewHandler(a.svc, cages.HeaderActorResolver))
	return r
}
