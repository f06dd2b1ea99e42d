// Package cli wires configuration, storage and services into the abcy
// command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"abcy/internal/analysis"
	"abcy/internal/auth"
	"abcy/internal/config"
	"abcy/internal/logger"
	"abcy/internal/service"
	"abcy/internal/store"
	"abcy/internal/strava"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "abcy",
		Short: "Endurance training analytics for Strava activities",
		Long: `abcy stores cycling activities, derives power metrics (NP, IF, TSS)
and tracks FTP, weight, W/kg and the Enduro and Fitness scores over time.

Examples:
  abcy authorize
  abcy sync --count 20
  abcy ftp 265
  abcy stats --period month
  abcy serve`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ~/.abcy/config.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newServeCmd(opts),
		newSyncCmd(opts),
		newAuthorizeCmd(opts),
		newImportFitCmd(opts),
		newLedgerCmd(opts, "ftp", "Show or set FTP in watts"),
		newLedgerCmd(opts, "weight", "Show or set body weight in kg"),
		newLedgerCmd(opts, "wkg", "Show W/kg (FTP divided by weight)"),
		newScoresCmd(opts),
		newStatsCmd(opts),
		newTrendCmd(opts),
		newSummaryCmd(opts),
		newTUICmd(opts),
	)
	return cmd
}

// annotationLogFile marks commands whose logs go to a file in the data
// directory instead of stderr.
const annotationLogFile = "abcy/log-file"

// LogFileName is the log file written by full-screen commands
const LogFileName = "abcy.log"

// app holds the dependencies shared by commands
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *store.Store
	svc     *service.Service
	logFile *os.File
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFile(opts.configFile)
	} else {
		cfg, err = config.Load()
		if errors.Is(err, config.ErrNoConfig) {
			// Defaults plus environment are enough for local commands
			cfg, err = config.FromEnv(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	var logOut io.Writer = cmd.ErrOrStderr()
	var logFile *os.File
	if _, ok := cmd.Annotations[annotationLogFile]; ok {
		logFile, err = os.OpenFile(filepath.Join(cfg.Storage.DataDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logOut = logFile
	}
	log := logger.NewWithWriter(cfg.Log, logOut)
	log.Debug().Str("data_dir", cfg.Storage.DataDir).Msg("store opened")

	svc := service.New(st,
		service.WithLogger(log),
		service.WithTrendConfig(analysis.TrendConfig{
			Window:   cfg.Trend.Window,
			SameBand: cfg.Trend.SameBand,
			VeryBand: cfg.Trend.VeryBand,
		}),
	)

	return &app{cfg: cfg, log: log, store: st, svc: svc, logFile: logFile}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

func (a *app) oauthConfig() *oauth2.Config {
	return auth.NewOAuthConfig(auth.Config{
		ClientID:     a.cfg.Strava.ClientID,
		ClientSecret: a.cfg.Strava.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", auth.CallbackPort),
		BaseURL:      a.cfg.BaseURL,
	})
}

// syncService builds a Strava-backed SyncService from stored or configured tokens.
func (a *app) syncService(ctx context.Context) (*service.SyncService, error) {
	if err := a.cfg.ValidateStrava(); err != nil {
		return nil, err
	}

	ts, err := auth.NewStoredTokenSource(ctx, a.oauthConfig(), a.store, a.cfg.Strava.RefreshToken, a.log)
	if errors.Is(err, auth.ErrNoToken) {
		return nil, fmt.Errorf("%w: run 'abcy authorize' or set strava.refresh_token", err)
	}
	if err != nil {
		return nil, err
	}

	client := strava.NewClient(ts, a.cfg.BaseURL, strava.WithLogger(a.log))
	return service.NewSyncService(client, a.svc, a.store, a.log), nil
}

// withApp opens the app for the duration of fn.
func withApp(opts *rootOptions, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
