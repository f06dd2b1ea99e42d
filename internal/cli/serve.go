package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"abcy/internal/api"
	"abcy/internal/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and periodic sync",
		Long: `Start the HTTP API. When Strava credentials are available the latest
activities are downloaded on server.sync_schedule and on webhook events.

Endpoints:
  GET  /health
  GET  /activities?count=N
  GET  /activity/{id}  /activity/{id}/summary
  GET  /files  /raw/{path}
  GET  /ftp /weight /wkg /enduro /fitness (+ /history?count=N)
  POST /ftp /weight /enduro/update /fitness/update
  GET  /stats?period=week&ids=1,2&types=Ride
  GET  /trend
  POST /webhook`,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return runServer(cmd.Context(), a)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServer(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var downloader api.Downloader
	syncSvc, err := a.syncService(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("strava sync disabled")
	} else {
		downloader = syncSvc
	}

	var sched *cron.Cron
	if syncSvc != nil && a.cfg.Server.SyncSchedule != "" {
		sched = cron.New()
		if _, err := sched.AddFunc(a.cfg.Server.SyncSchedule, func() {
			runScheduledSync(ctx, a, syncSvc)
		}); err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", a.cfg.Server.SyncSchedule, err)
		}
		sched.Start()
		a.log.Info().Str("schedule", a.cfg.Server.SyncSchedule).Msg("periodic sync scheduled")
	}

	handler := api.NewHandler(a.svc, downloader, a.log)
	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewRouter(handler, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", server.Addr).Msg("API server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down server")
	if sched != nil {
		<-sched.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info().Msg("server stopped")
	return nil
}

func runScheduledSync(ctx context.Context, a *app, syncSvc *service.SyncService) {
	result, err := syncSvc.DownloadLatest(ctx, a.cfg.Storage.DownloadCount, nil)
	if err != nil {
		a.log.Error().Err(err).Msg("scheduled sync failed")
		return
	}
	a.log.Info().
		Int("stored", result.ActivitiesStored).
		Int("skipped", result.ActivitiesSkipped).
		Int("errors", len(result.Errors)).
		Msg("scheduled sync finished")
}
