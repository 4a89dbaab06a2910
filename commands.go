package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fragmede/keyhole/internal/api"
	"github.com/fragmede/keyhole/internal/auth"
	"github.com/fragmede/keyhole/internal/cache"
	"github.com/fragmede/keyhole/internal/config"
	"github.com/fragmede/keyhole/internal/logging"
	"github.com/fragmede/keyhole/internal/monitor"
	"github.com/fragmede/keyhole/internal/ui"
)

type rootOptions struct {
	configPath string
	baseURL    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "keyhole",
		Short: "Terminal client for cookie-session authenticated web apps",
		Long: `keyhole logs in to a web application that uses cookie-session
authentication with a CSRF cookie, and keeps the session between runs.

Run without a subcommand to open the terminal UI.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "config file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides config)")

	cmd.AddCommand(newWhoamiCmd(opts), newLogoutCmd(opts))
	return cmd
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user of the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return whoami(cmd.Context(), e, cmd.OutOrStdout())
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return logout(cmd.Context(), e, cmd.OutOrStdout())
		},
	}
}

// env is the object graph shared by all commands.
type env struct {
	cfg      config.Config
	log      *slog.Logger
	db       *cache.DB
	client   *api.Client
	store    *auth.Store
	keeper   *auth.Keeper
	closeLog func() error
}

func setup(opts *rootOptions) (*env, error) {
	cfg, err := config.Load(opts.configPath, config.WithBaseURL(opts.baseURL))
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.Init(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		closeLog()
		return nil, err
	}

	client, err := api.NewClient(cfg, logger.With("component", "api"))
	if err != nil {
		db.Close()
		closeLog()
		return nil, err
	}

	store := auth.NewStore(client, auth.WithLogger(logger.With("component", "auth")))
	keeper := auth.NewKeeper(store, client, db, logger.With("component", "keeper"))
	logger.Info("starting", "base_url", cfg.BaseURL, "db", cfg.DBPath)

	return &env{
		cfg:      cfg,
		log:      logger,
		db:       db,
		client:   client,
		store:    store,
		keeper:   keeper,
		closeLog: closeLog,
	}, nil
}

func (e *env) Close() {
	if err := e.keeper.Close(); err != nil {
		e.log.Warn("saving session on exit", "error", err)
	}
	if err := e.db.Close(); err != nil {
		e.log.Warn("closing database", "error", err)
	}
	e.closeLog()
}

func runTUI(opts *rootOptions) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	app := ui.NewApp(e.cfg, e.store, e.keeper)
	p := tea.NewProgram(app, tea.WithAltScreen())
	app.SetProgram(p)
	defer app.Close()

	mon := monitor.New(e.store, e.cfg.SessionCheckInterval, e.log.With("component", "monitor"))
	mon.Start()
	defer mon.Stop()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func whoami(ctx context.Context, e *env, out io.Writer) error {
	res, err := e.keeper.Restore(ctx)
	if err != nil {
		return err
	}
	switch res.Status {
	case auth.FetchOK:
		u := res.User
		fmt.Fprintf(out, "%s <%s> (id %d)\n", u.Name, u.Email, u.ID)
		if u.CreatedAt != nil {
			fmt.Fprintf(out, "member since %s\n", u.CreatedAt.Format(time.DateOnly))
		}
		return nil
	case auth.FetchNotAuthenticated:
		fmt.Fprintln(out, "not logged in")
		return nil
	}
	return fmt.Errorf("checking session: %w", res.Err)
}

func logout(ctx context.Context, e *env, out io.Writer) error {
	res, err := e.keeper.Restore(ctx)
	if err != nil {
		return err
	}
	if res.Status == auth.FetchNotAuthenticated {
		fmt.Fprintln(out, "not logged in")
		return nil
	}
	err = e.store.Logout(ctx)
	// The saved cookies go even if the server could not be told.
	if cerr := e.db.ClearCookies(); cerr != nil {
		e.log.Warn("clearing saved session", "error", cerr)
	}
	if err != nil {
		fmt.Fprintln(out, "logged out locally")
		return err
	}
	fmt.Fprintln(out, "logged out")
	return nil
}
