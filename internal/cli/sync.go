package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"abcy/internal/auth"
	"abcy/internal/service"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download the latest activities from Strava",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if count <= 0 {
				count = a.cfg.Storage.DownloadCount
			}

			syncSvc, err := a.syncService(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			progress := make(chan service.SyncProgress, 8)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for p := range progress {
					fmt.Fprintf(out, "[%d/%d] %s\n", p.Completed+1, p.Total, p.CurrentActivity)
				}
			}()

			result, err := syncSvc.DownloadLatest(ctx, count, progress)
			<-done
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "fetched %d, stored %d, skipped %d\n",
				result.ActivitiesFetched, result.ActivitiesStored, result.ActivitiesSkipped)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  error: %v\n", e)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d activities failed", len(result.Errors))
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of recent activities (default storage.download_count)")
	return cmd
}

func newAuthorizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Authorize abcy with Strava in the browser",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.cfg.ValidateStrava(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			authorizer := &auth.Authorizer{Config: a.oauthConfig(), Store: a.store, Out: out}
			result, err := authorizer.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("authorization: %w", err)
			}

			fmt.Fprintf(out, "\nSuccessfully authenticated as athlete %d\n", result.AthleteID)
			return nil
		}),
	}
}
