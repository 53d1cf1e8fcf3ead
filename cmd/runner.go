package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/metrics"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/overrides"
	"github.com/desertthunder/ytcat/internal/repositories"
	"github.com/desertthunder/ytcat/internal/server"
	"github.com/desertthunder/ytcat/internal/services"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/desertthunder/ytcat/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The categorization pipeline is built lazily by [Runner.pipeline] so commands such as `setup config` work without a
// database or OAuth client.
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	interactive bool

	db        *sql.DB
	oauth     *oauth2.Config
	consent   services.ConsentFunc
	metrics   *metrics.Metrics
	auth      *services.Authenticator
	fetcher   *services.Fetcher
	store     *overrides.Store
	organizer *tasks.Organizer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	// Interactive enables spinners and prompts; set when stdout is a terminal.
	Interactive bool
	// DB, OAuth and Consent replace the configured database, OAuth client and browser prompt.
	DB      *sql.DB
	OAuth   *oauth2.Config
	Consent services.ConsentFunc
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		interactive: opts.Interactive,
		db:          opts.DB,
		oauth:       opts.OAuth,
		consent:     opts.Consent,
		metrics:     metrics.New(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, categoryCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// configure loads the config file named by --config, overlays the environment and applies --debug.
//
// A missing file keeps the defaults.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if err := r.config.ApplyEnv(os.LookupEnv); err != nil {
		return ctx, err
	}

	level := log.InfoLevel
	if lvl, err := log.ParseLevel(r.config.Log.Level); err == nil {
		level = lvl
	}
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// pipeline builds the database, authenticator, fetcher, override store and organizer on first use.
func (r *Runner) pipeline() error {
	if r.organizer != nil {
		return nil
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.db == nil {
		db, err := shared.OpenConfigured(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	}

	if r.oauth == nil {
		conf, err := services.OAuthConfig(r.config.Credentials.YouTube)
		if err != nil {
			return err
		}
		r.oauth = conf
	}

	r.auth = services.NewAuthenticator(r.oauth, repositories.NewCredentialRepository(r.db), services.AuthOptions{
		SafetyMargin: r.config.Fetch.TokenSafetyMargin,
		Metrics:      r.metrics,
		Logger:       r.logger,
	})

	opts := services.FetcherOptionsFromConfig(r.config.Fetch)
	opts.Metrics = r.metrics
	opts.Logger = r.logger
	r.fetcher = services.NewFetcher(r.auth, opts)

	c := classifier.New(classifier.DefaultTaxonomy())
	r.store = overrides.NewStore(repositories.NewOverrideRepository(r.db), c, r.metrics, r.logger)
	r.organizer = tasks.NewOrganizer(r.auth, r.fetcher, r.store, r.logger)
	return nil
}

// Close releases the database.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// prompt returns the consent function used when a command needs a fresh sign-in.
func (r *Runner) prompt() services.ConsentFunc {
	if r.consent != nil {
		return r.consent
	}
	lc := &server.LocalConsent{
		RedirectURL: r.oauth.RedirectURL,
		Out:         r.output,
		Logger:      r.logger,
	}
	return lc.Prompt
}

// withSpinner runs fn behind a spinner when interactive, and directly otherwise.
func (r *Runner) withSpinner(ctx context.Context, title string, fn func(context.Context) error) error {
	if !r.interactive {
		return fn(ctx)
	}
	return spinner.New().Title(title).Context(ctx).ActionWithErr(fn).Run()
}

// drain logs progress updates until progress is closed.
func (r *Runner) drain(progress <-chan tasks.ProgressUpdate) {
	for update := range progress {
		r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
	}
}

// library fetches the categorized library for the local user behind a spinner.
func (r *Runner) library(ctx context.Context, maxPlaylists int) (*models.Library, error) {
	if err := r.pipeline(); err != nil {
		return nil, err
	}
	if maxPlaylists <= 0 {
		maxPlaylists = r.config.Fetch.MaxPlaylists
	}

	var lib *models.Library
	err := r.withSpinner(ctx, "Fetching playlists...", func(ctx context.Context) error {
		progress := make(chan tasks.ProgressUpdate, 16)
		done := make(chan struct{})
		go func() {
			r.drain(progress)
			close(done)
		}()

		var err error
		lib, err = r.organizer.Library(ctx, shared.LocalUser, maxPlaylists, progress)
		close(progress)
		<-done
		return err
	})
	return lib, err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
