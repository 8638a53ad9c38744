package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marshallshelly/modspace/internal/app"
	"github.com/marshallshelly/modspace/pkg/orm"
	"github.com/marshallshelly/modspace/pkg/runtime"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0"

var (
	// Global flags
	configPath string
	dbURL      string
	driver     string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "modspace",
	Short: "modspace - entity persistence engine with a REST front end",
	Long: `modspace maps tagged Go structs to SQL rows, resolves their relations
(one-to-one, one-to-many, many-to-one, many-to-many) and serves the
users, books, catalogs, students and contact-infos resources over HTTP.

Database settings are read from --config (a YAML file with a "database"
section), DATABASE_DRIVER and DATABASE_URL, then the --driver and --db flags.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL or DSN (overrides the configuration)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: pgx, postgres, mysql or sqlite")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every SQL statement")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// loadConfig merges the configuration file, the environment and the flags.
func loadConfig() (*runtime.Config, error) {
	cfg, err := runtime.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if driver != "" {
		cfg.Driver = driver
	}
	if dbURL != "" {
		cfg.DSN = dbURL
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// openManager connects to the configured database and returns an
// EntityManager with the application repositories registered.
func openManager(ctx context.Context, cfg *runtime.Config) (*orm.EntityManager, error) {
	logger, err := runtime.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	policy, err := orm.ParseOrphanPolicy(cfg.OrphanPolicy)
	if err != nil {
		return nil, err
	}

	db, err := runtime.Connect(ctx, cfg, runtime.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Debug("connected",
		zap.String("driver", cfg.Driver),
		zap.Stringer("dialect", db.Dialect()),
		zap.Stringer("orphan_policy", policy))

	em := orm.NewEntityManager(db, orm.WithLogger(logger), orm.WithOrphanPolicy(policy))
	if err := app.Register(em); err != nil {
		_ = db.Close()
		return nil, err
	}
	return em, nil
}
