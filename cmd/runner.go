package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/gsotw/internal/formatter"
	"github.com/desertthunder/gsotw/internal/gate"
	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/repositories"
	"github.com/desertthunder/gsotw/internal/services"
	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil in [RunnerOpts] are built from the loaded config on first use,
// so tests can inject in-memory stores and a mock catalog.
type Runner struct {
	config      *shared.Config
	configFixed bool
	catalog     services.Catalog
	submissions models.SubmissionStore
	archive     models.ArchiveStore
	flags       gate.FlagStore
	clock       shared.Clock
	db          *sql.DB
	logger      *log.Logger
	input       io.Reader
	output      io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	Catalog     services.Catalog
	Submissions models.SubmissionStore
	Archive     models.ArchiveStore
	Flags       gate.FlagStore
	Clock       shared.Clock
	Logger      *log.Logger
	Input       io.Reader
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	r := &Runner{
		config:      opts.Config,
		configFixed: opts.Config != nil,
		catalog:     opts.Catalog,
		submissions: opts.Submissions,
		archive:     opts.Archive,
		flags:       opts.Flags,
		clock:       opts.Clock,
		logger:      opts.Logger,
		input:       opts.Input,
		output:      opts.Output,
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	if r.logger == nil {
		r.logger = shared.NewLogger(nil)
	}
	if r.input == nil {
		r.input = os.Stdin
	}
	if r.output == nil {
		r.output = os.Stdout
	}
	if r.clock == nil {
		r.clock = shared.SystemClock{}
	}
	return r
}

func (r *Runner) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("GSOTW_CONFIG"),
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Path to a dotenv file loaded before the config",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error); overrides the config",
		},
	}
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:     "gsotw",
		Usage:    "Weekly song picks for the group: search, submit and review",
		Version:  "0.3.0",
		Flags:    r.globalFlags(),
		Before:   r.Configure,
		After:    r.Close,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, unlockCommand, searchCommand, submitCommand, queueCommand, archiveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the dotenv file and the TOML config, then applies environment overrides.
//
// A missing config file falls back to the embedded defaults. An injected config is kept as is.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if !r.configFixed {
		if err := shared.LoadEnvFile(cmd.String("env")); err != nil {
			return ctx, err
		}

		path := cmd.String("config")
		config, err := shared.LoadConfig(path)
		switch {
		case err == nil:
			r.logger.Debug("loaded config", "path", path)
		case errors.Is(err, fs.ErrNotExist):
			r.logger.Debug("config file not found, using defaults", "path", path)
			config = shared.DefaultConfig()
		default:
			return ctx, err
		}

		if err := config.ApplyEnv(); err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) database(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	if err := shared.RunMigrations(ctx, db, r.config.Database.Driver); err != nil {
		db.Close()
		return nil, err
	}
	r.db = db
	return db, nil
}

// stores returns the submission and archive stores, opening the database when none were injected.
func (r *Runner) stores(ctx context.Context) (models.SubmissionStore, models.ArchiveStore, error) {
	if r.submissions == nil || r.archive == nil {
		db, err := r.database(ctx)
		if err != nil {
			return nil, nil, err
		}
		store := repositories.NewStore(db)
		if r.submissions == nil {
			r.submissions = store.Submissions
		}
		if r.archive == nil {
			r.archive = store.Archive
		}
	}
	return r.submissions, r.archive, nil
}

func (r *Runner) catalogService() services.Catalog {
	if r.catalog == nil {
		r.catalog = services.NewSpotifyService(
			r.config.Credentials.Spotify,
			services.WithRateLimit(r.config.Catalog.RateLimit),
			services.WithLogger(shared.WithLogger(r.logger, "component", "spotify")),
		)
	}
	return r.catalog
}

func (r *Runner) flagStore() (gate.FlagStore, error) {
	if r.flags == nil {
		store, err := gate.NewFileStore(r.config.Access.FlagPath)
		if err != nil {
			return nil, err
		}
		r.flags = store
	}
	return r.flags, nil
}

func (r *Runner) gate() *gate.Gate {
	return gate.New(r.config.Access.Passcode, shared.WithLogger(r.logger, "component", "gate"))
}

// requireAccess fails unless `gsotw unlock` has stored the access flag.
func (r *Runner) requireAccess() error {
	store, err := r.flagStore()
	if err != nil {
		return err
	}
	if r.gate().Check(store) != gate.Granted {
		return fmt.Errorf("%w: run 'gsotw unlock' first", shared.ErrAccessDenied)
	}
	return nil
}

func (r *Runner) workflow(ctx context.Context) (*tasks.Workflow, *tasks.Listings, error) {
	submissions, archive, err := r.stores(ctx)
	if err != nil {
		return nil, nil, err
	}
	loc, err := r.config.Location()
	if err != nil {
		return nil, nil, err
	}

	wf := tasks.NewWorkflow(
		r.catalogService(),
		submissions,
		tasks.WithClock(r.clock),
		tasks.WithLocation(loc),
		tasks.WithSearchLimit(r.config.Catalog.SearchLimit),
		tasks.WithLogger(shared.WithLogger(r.logger, "component", "workflow")),
	)
	listings := tasks.NewListings(submissions, archive, loc, shared.WithLogger(r.logger, "component", "listings"))
	return wf, listings, nil
}

// member resolves the acting member from --member.
func (r *Runner) member(cmd *cli.Command) (models.Member, error) {
	m := models.Member{Username: cmd.String("member")}
	if m.Anonymous() {
		return m, fmt.Errorf("%w: --member or GSOTW_MEMBER is required", shared.ErrMissingArgument)
	}
	return m, nil
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

// writeFormatted writes data to path, or to the runner's output when path is empty or "-".
func (r *Runner) writeFormatted(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := r.output.Write(data)
		return err
	}
	if err := formatter.WriteFile(path, data); err != nil {
		return err
	}
	r.logger.Info("wrote output", "path", path)
	return nil
}
