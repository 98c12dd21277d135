package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/metrics"
	"github.com/desertthunder/trendrank/internal/repositories"
	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store and catalog clients are opened lazily so commands that never touch them
// need neither a database nor credentials.
type Runner struct {
	config      *shared.Config
	logger      *log.Logger
	output      io.Writer
	store       *repositories.Store
	catalog     services.Catalog
	editor      services.PlaylistEditor
	recorder    *metrics.Recorder
	openBrowser func(url string) error
	configFixed bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Logger   *log.Logger
	Output   io.Writer
	Store    *repositories.Store
	Catalog  services.Catalog
	Editor   services.PlaylistEditor
	Recorder *metrics.Recorder
	Browser  func(url string) error
}

// NewRunner creates a new Runner with the provided configuration.
//
// A Config passed in opts is used as is; otherwise [Runner.Before] loads one.
func NewRunner(opts RunnerOpts) *Runner {
	fixed := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewRecorder()
	}
	if opts.Browser == nil {
		opts.Browser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		logger:      opts.Logger,
		output:      opts.Output,
		store:       opts.Store,
		catalog:     opts.Catalog,
		editor:      opts.Editor,
		recorder:    opts.Recorder,
		openBrowser: opts.Browser,
		configFixed: fixed,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		initCommand, migrateCommand, rosterCommand,
		snapshotCommand, dailyCommand, weeklyCommand, playlistCommand,
		showCommand, viewCommand, authCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the dotenv file and configuration, applies environment overrides and sets the
// log level. It runs once before any subcommand.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnvFile(cmd.String("env-file")); err != nil {
		return ctx, err
	}

	if !r.configFixed {
		config, err := r.loadConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		if err := config.ApplyEnv(os.LookupEnv); err != nil {
			return ctx, err
		}
		r.config = config
	}

	if lvl := cmd.String("log-level"); lvl != "" {
		r.config.LogLevel = lvl
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.LogLevel))

	if err := r.config.Validate(); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// loadConfig reads path, falling back to the embedded defaults when the file does not exist.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

// SetLogger replaces the runner's logger, keeping the current level.
func (r *Runner) SetLogger(l *log.Logger) {
	l.SetLevel(r.logger.GetLevel())
	r.logger = l
}

// Store opens the configured database on first use and applies pending migrations.
func (r *Runner) Store() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Driver, r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.store = repositories.NewStore(db)
	return r.store, nil
}

// Catalog returns the client-credentials catalog client. Without credentials it returns an
// error when required and nil otherwise.
func (r *Runner) Catalog(required bool) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	if err := r.config.RequireCatalogCredentials(); err != nil {
		if required {
			return nil, err
		}
		r.logger.Warn("Catalog credentials missing, skipping catalog calls", "error", err)
		return nil, nil
	}

	r.catalog = services.NewCatalogFromConfig(r.config, r.logger, r.recorder)
	return r.catalog, nil
}

// Editor returns the user-scoped catalog client used by the playlist job.
func (r *Runner) Editor() (services.PlaylistEditor, error) {
	if r.editor != nil {
		return r.editor, nil
	}
	if err := r.config.RequireUserCredentials(); err != nil {
		return nil, err
	}

	r.editor = services.NewUserCatalogFromConfig(r.config, r.logger, r.recorder)
	return r.editor, nil
}

// Close releases the database connection, if one was opened.
func (r *Runner) Close() {
	if r.store == nil {
		return
	}
	if err := r.store.DB.Close(); err != nil {
		r.logger.Warn("failed to close database", "error", err)
	}
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
