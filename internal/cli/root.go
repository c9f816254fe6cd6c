// Package cli wires configuration, the session store and the API client
// behind the campus command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fragmede/campus/internal/api"
	"github.com/fragmede/campus/internal/config"
	"github.com/fragmede/campus/internal/logging"
	"github.com/fragmede/campus/internal/session"
	"github.com/fragmede/campus/internal/store"
)

type options struct {
	store     string
	apiURL    string
	dataDir   string
	logLevel  string
	ephemeral bool
}

// NewRootCmd builds the campus command tree. Running it without a
// subcommand starts the terminal UI.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "campus",
		Short:         "Terminal client for the campus learning platform",
		Long:          `campus keeps you logged in to the learning platform and lets you manage your profile from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	// Persistent flags (available to all commands)
	flags := root.PersistentFlags()
	flags.StringVar(&opts.store, "store", "", "Session store backend: sqlite, redis or memory")
	flags.StringVar(&opts.apiURL, "api-url", "", "Base URL of the auth service")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory for the session database and log")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "Keep the session in memory only")

	root.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newProfileCmd(opts),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads the environment and applies flag overrides.
func (o *options) loadConfig() (config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return config.Config{}, err
	}
	if o.dataDir != "" {
		cfg.SetDataDir(o.dataDir)
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if o.ephemeral {
		cfg.Store = config.StoreMemory
	}
	if o.apiURL != "" {
		cfg.APIURL = o.apiURL
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// runtime is everything a command needs to talk to the service.
type runtime struct {
	cfg     config.Config
	log     *slog.Logger
	logFile *os.File
	store   store.Store
	client  *api.Client
	session *session.Manager
}

// open builds the runtime. Logs go to the file in the data dir; if that
// cannot be opened, logging is discarded so command output stays clean.
func (o *options) open(ctx context.Context) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: logging.NewNop()}
	if l, f, err := logging.NewFile(cfg.Level(), cfg.LogPath); err == nil {
		rt.log, rt.logFile = l, f
	}

	rt.store, err = store.Open(cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store, err)
	}

	rt.client = api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(rt.log.With(slog.String("component", "api"))),
	)
	rt.session = session.New(ctx, rt.store, rt.client,
		session.WithLogger(rt.log.With(slog.String("component", "session"))),
	)
	rt.log.Debug("runtime ready",
		slog.String("store", cfg.Store),
		slog.String("api", cfg.APIURL),
	)
	return rt, nil
}

// Close releases the session, store and log file.
func (r *runtime) Close() error {
	var errs []error
	if r.session != nil {
		errs = append(errs, r.session.Close())
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.logFile != nil {
		errs = append(errs, r.logFile.Close())
	}
	return errors.Join(errs...)
}
