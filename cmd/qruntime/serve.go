package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/qruntime/app"
	"github.com/upb/qruntime/handlers"
	"github.com/upb/qruntime/internal/observability"
	"github.com/upb/qruntime/routes"
	"github.com/upb/qruntime/services/session"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open a session once, then serve its status over HTTP",
		Long: `serve resolves a backend exactly like "resolve", then serves
/healthz, /readyz, /api/v1/session and /metrics until interrupted.

A failed resolution does not stop the server; it is reported by /readyz
and /api/v1/session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer closeDependencies(deps)

			lis, err := net.Listen("tcp", deps.Config.Server.Address())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), deps, lis, openRequest(opts, deps.Config))
		},
	}
}

// serve opens the session, then serves the status routes on lis until ctx
// is cancelled.
func serve(ctx context.Context, deps *app.Dependencies, lis net.Listener, req session.OpenRequest) error {
	log := observability.NewContextLogger(deps.Logger)
	state := handlers.NewSessionState()

	result, err := deps.Sessions.Open(ctx, req)
	state.Set(result, err)
	if err != nil {
		log.Error(ctx, "failed to open session", zap.Error(err))
	}

	srv := &http.Server{
		Handler:      routes.SetupRoutes(deps, state),
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "status server listening", zap.String("address", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.Server.ShutdownTimeout)
		defer cancel()

		log.Info(gctx, "shutting down status server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
