package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"abcy/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard",
		// The terminal belongs to the dashboard while it runs
		Annotations: map[string]string{annotationLogFile: ""},
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			syncSvc, err := a.syncService(cmd.Context())
			if err != nil {
				a.log.Warn().Err(err).Msg("strava sync disabled")
				syncSvc = nil
			}

			p := tea.NewProgram(tui.NewApp(a.svc, syncSvc, a.cfg.Storage.DownloadCount), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running TUI: %w", err)
			}
			return nil
		}),
	}
}
