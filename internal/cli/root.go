// Package cli provides command-line interface setup for expdb.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expdb/internal/config"
	"expdb/internal/logger"
	"expdb/internal/output"
	"expdb/internal/prompt"
	"expdb/internal/registry"
	"expdb/internal/store"
	"expdb/internal/store/memstore"
	"expdb/internal/store/mongostore"
	"expdb/internal/store/sqlitestore"
)

// OpenFunc connects to the database described by cfg.
type OpenFunc func(ctx context.Context, cfg *config.Config) (store.Database, error)

// App represents the expdb CLI application
type App struct {
	Config *config.Config

	// Stdout receives command output.
	Stdout io.Writer
	// Stderr receives logs unless --log-file is given.
	Stderr io.Writer
	// OpenDatabase is replaced in tests to inject an in-memory store.
	OpenDatabase OpenFunc
	// Confirm answers destructive-action prompts when --yes is not given.
	Confirm registry.ConfirmFunc

	viper      *viper.Viper
	configFile string
	envFile    string
	quiet      bool
	printer    *output.Printer
}

// NewApp creates a new expdb CLI application
func NewApp() *App {
	return &App{
		Config:       config.NewConfig(),
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		OpenDatabase: OpenDatabase,
		Confirm:      prompt.Interactive(),
		viper:        viper.New(),
	}
}

// OpenDatabase opens the backend selected by cfg.Backend.
func OpenDatabase(ctx context.Context, cfg *config.Config) (store.Database, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		return mongostore.Open(ctx, cfg.MongoURI(), cfg.DatabaseName, cfg.Timeout)
	case config.BackendSQLite:
		openCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		return sqlitestore.Open(openCtx, cfg.SQLitePath)
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "expdb",
		Short: "Administer the simulation experiment database",
		Long: `expdb lists, describes, deletes, downloads and uploads the simulation
experiments stored in the configuration and history collections of a
document database.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "o", config.DefaultHost, "Database host")
	flags.IntP("port", "p", config.DefaultPort, "Database port")
	flags.StringP("database-name", "b", config.DefaultDatabaseName, "Name of the database to read from")
	flags.String("backend", config.DefaultBackend, "Storage backend (mongo|sqlite|memory)")
	flags.String("sqlite-path", config.DefaultSQLitePath, "Database file for the sqlite backend")
	flags.Duration("timeout", config.DefaultTimeout, "Connection timeout")
	flags.String("log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.String("log-file", "", "Write logs to file instead of stderr")
	flags.String("format", config.DefaultFormat, "Output format (text|plain|styled|json|yaml)")
	flags.StringVar(&app.configFile, "config", "", "YAML config file")
	flags.BoolVarP(&app.quiet, "quiet", "q", false, "Suppress command output; failures are still logged")
	flags.StringVar(&app.envFile, "env-file", config.DefaultEnvFile, "Environment file loaded before reading EXPDB_* variables")

	app.addQueryCommands(rootCmd)
	app.addDeleteCommands(rootCmd)
	app.addTransferCommands(rootCmd)
	app.addVersionCommand(rootCmd)

	return rootCmd
}

// Execute runs the CLI with args and returns the first error a command reported.
func (app *App) Execute(ctx context.Context, args []string) error {
	rootCmd := app.CreateRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)
	return rootCmd.ExecuteContext(ctx)
}

// setup resolves configuration, logging and the printer before any subcommand runs.
func (app *App) setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(app.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(app.viper, cmd.Root().PersistentFlags(), app.configFile)
	if err != nil {
		return err
	}
	app.Config = cfg

	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	if cfg.LogFile == "" {
		logger.SetOutput(app.Stderr)
	}

	mode, err := output.ParseMode(cfg.Format)
	if err != nil {
		return err
	}
	opts := []output.Option{output.WithWriter(app.Stdout), output.WithMode(mode)}
	if mode == output.ModeStyled || (mode == output.ModeAuto && output.ColorSupported()) {
		opts = append(opts, output.WithStyles(output.DefaultTheme()))
	}
	if app.quiet {
		opts = append(opts, output.Silent())
	}
	app.printer = output.NewPrinter(opts...)

	logger.CommandExecution(cmd.Name(), args)
	logger.Debug("Configuration loaded", "backend", cfg.Backend, "address", cfg.Address(), "database", cfg.DatabaseName)
	return nil
}

// withClient opens the database, runs fn with a registry client and closes the
// database afterwards.
func (app *App) withClient(ctx context.Context, fn func(*registry.Client) error) error {
	db, err := app.OpenDatabase(ctx, app.Config)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			logger.Warn("Closing database failed", "error", err)
		}
	}()

	client := registry.NewClient(db, registry.Options{
		ConfigurationCollection: app.Config.ConfigurationCollection,
		HistoryCollection:       app.Config.HistoryCollection,
	})
	return fn(client)
}

func (app *App) confirmer(yes bool) registry.ConfirmFunc {
	if yes {
		return prompt.Always(true)
	}
	return app.Confirm
}
