package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tradeJournal/config"
	"tradeJournal/internal/adapters/fillfile"
	"tradeJournal/internal/adapters/logger"
	"tradeJournal/internal/adapters/sqlite"
	"tradeJournal/internal/app"
	"tradeJournal/internal/ports"
)

// RootConfig carries the persistent flags shared by every subcommand.
// Flags left unset fall back to the environment configuration.
type RootConfig struct {
	EnvFile   string
	Wallet    string
	FillsPath string
	DBPath    string
	LogLevel  string
	LogFormat string
}

// NewRootCmd builds the tradejournal command tree.
func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:           "tradejournal",
		Short:         "Trade journal: rebuild round-trip trades from exchange fills and measure them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env", "", "Path to a .env file (default: ./.env when present)")
	cmd.PersistentFlags().StringVarP(&rc.Wallet, "wallet", "w", "", "Wallet address (default: $WALLET)")
	cmd.PersistentFlags().StringVarP(&rc.FillsPath, "fills", "f", "", "Fills export file or directory (default: $FILLS_PATH)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "", "SQLite journal database (default: $DB_PATH)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "", "Log format: console|json")

	cmd.AddCommand(
		newSyncCmd(rc),
		newTradesCmd(rc),
		newStatsCmd(rc),
		newExportCmd(rc),
	)

	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if app.IsUserError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// journal bundles the wired service with the resources it holds open.
type journal struct {
	cfg     *config.Config
	logger  ports.Logger
	service *app.JournalService
	repo    *sqlite.Repository
}

func (j *journal) Close() {
	if err := j.repo.Close(); err != nil {
		j.logger.Error(context.Background(), err, "Error closing database repository")
	}
}

// loadConfig reads the environment configuration and applies flag overrides.
func (rc *RootConfig) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if rc.EnvFile != "" {
		cfg, err = config.LoadConfigFile(rc.EnvFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("wallet") {
		cfg.Wallet = rc.Wallet
	}
	if flags.Changed("fills") {
		cfg.FillsPath = rc.FillsPath
	}
	if flags.Changed("db") {
		cfg.DBPath = rc.DBPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logger.ParseLevel(rc.LogLevel)
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logger.ParseFormat(rc.LogFormat)
	}
	return cfg, nil
}

// open wires config, logger, storage and the fills source into a service.
func (rc *RootConfig) open(cmd *cobra.Command) (*journal, error) {
	cfg, err := rc.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	appLogger := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	appLogger.Debug(cmd.Context(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database repository: %w", err)
	}

	var source ports.FillSource
	if cfg.FillsPath != "" {
		reader, err := fillfile.New(fillfile.Config{Path: cfg.FillsPath, Logger: appLogger})
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to initialize fills reader: %w", err)
		}
		source = reader
	}

	service, err := app.NewJournalService(cfg, appLogger, source, repo, repo)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize journal service: %w", err)
	}

	return &journal{cfg: cfg, logger: appLogger, service: service, repo: repo}, nil
}
