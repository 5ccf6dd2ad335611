package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bellaciao/heistops/internal/auth"
	"github.com/bellaciao/heistops/internal/cli"
	"github.com/bellaciao/heistops/internal/config"
	"github.com/bellaciao/heistops/internal/database"
	"github.com/bellaciao/heistops/internal/export"
	"github.com/bellaciao/heistops/internal/logging"
	"github.com/bellaciao/heistops/internal/notification"
	"github.com/bellaciao/heistops/internal/sentinel"
	"github.com/bellaciao/heistops/internal/web"
	"github.com/bellaciao/heistops/internal/web/sse"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	envFile     string
	dbPath      string
	verbosity   int
	port        int
	bind        string
	allowSubnet string
	outputPath  string
	vacuum      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "heistops",
		Short: "Heistops - heist operations console",
		Long:  `Heistops tracks crew, hostages, resources and plan phases for a heist, with a web dashboard and an operator menu.`,
		RunE:  runServe,
		// Errors are logged by the commands themselves
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Environment file loaded before reading variables")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (or set DB_PATH env var)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard and background sentinel",
		RunE:  runServe,
	}
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (or set PORT env var)")
		c.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
		c.Flags().StringVarP(&allowSubnet, "allow-subnet", "a", "", "CIDR subnet allowed to connect (e.g., 192.168.1.0/24)")
	}

	exportCmd := &cobra.Command{
		Use:       "export <crew|hostages|resources>",
		Short:     "Write a CSV snapshot",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(export.KindCrew), string(export.KindHostages), string(export.KindResources)},
		RunE:      runExport,
	}
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default <kind>_export_<timestamp>.csv)")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().BoolVar(&vacuum, "vacuum", false, "Rebuild the database file after migrating")

	rootCmd.AddCommand(
		serveCmd,
		&cobra.Command{
			Use:   "menu",
			Short: "Run the interactive operator menu",
			RunE:  runMenu,
		},
		exportCmd,
		migrateCmd,
		&cobra.Command{
			Use:   "hash-password [password]",
			Short: "Print a bcrypt hash for OPERATOR_PASSWORD_HASH",
			Long:  `Print a bcrypt hash for OPERATOR_PASSWORD_HASH. The password is read from standard input when not given as an argument.`,
			Args:  cobra.MaximumNArgs(1),
			RunE:  runHashPassword,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("heistops %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the env file and environment, then applies explicitly set flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("bind") {
		cfg.Bind = bind
	}
	if flags.Changed("allow-subnet") {
		cfg.AllowSubnet = allowSubnet
	}
	if verbosity > 0 {
		cfg.Log.Level = levelForVerbosity(verbosity)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func levelForVerbosity(v int) string {
	switch v {
	case 0:
		return "info"
	case 1:
		return "debug"
	default: // 2+
		return "trace"
	}
}

func setupLogging(cfg *config.Config) {
	path := cfg.Log.File
	if path == "" {
		path = logging.FilePathForDB(cfg.DBPath)
	}
	logging.Apply(cfg.Log.Level, cfg.Log, path)
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return db, nil
}

// prepare loads configuration, sets up logging and opens the database
func prepare(cmd *cobra.Command) (*config.Config, *database.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	setupLogging(cfg)

	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		log.Error().Err(err).Str("database", cfg.DBPath).Msg("Database unavailable")
		return nil, nil, err
	}
	return cfg, db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	allowedNet, err := cfg.Subnet()
	if err != nil {
		return err
	}

	if cfg.OperatorPasswordHash != "" && !auth.ValidHash(cfg.OperatorPasswordHash) {
		return fmt.Errorf("OPERATOR_PASSWORD_HASH is not a bcrypt hash; generate one with 'heistops hash-password'")
	}
	operator := auth.NewOperator(cfg.OperatorPasswordHash)

	// Warn if binding to all interfaces without an allow list
	if (cfg.Bind == "" || cfg.Bind == "0.0.0.0" || cfg.Bind == "::") && allowedNet == nil && !operator.Enabled() {
		log.Warn().Msg("Server is accessible from all interfaces without subnet restrictions or an operator password. Consider using --bind, --allow-subnet or OPERATOR_PASSWORD_HASH.")
	}

	log.Info().
		Str("version", version).
		Str("addr", cfg.Addr()).
		Str("allow_subnet", cfg.AllowSubnet).
		Str("database", cfg.DBPath).
		Bool("operator_auth", operator.Enabled()).
		Msg("Starting Heistops")

	broker := sse.NewBroker()

	sentinelMgr := sentinel.NewManager(db, broker, sentinel.Config{
		WatchSchedule:       cfg.WatchSchedule,
		MaintenanceSchedule: cfg.MaintenanceSchedule,
	})
	alerts, err := newAlertManager(cfg.Alert)
	if err != nil {
		return err
	}
	if alerts.Start() {
		defer alerts.Stop()
		sentinelMgr.SetNotifier(alerts)
	}
	if err := sentinelMgr.Start(); err != nil {
		return fmt.Errorf("failed to start sentinel: %w", err)
	}
	defer sentinelMgr.Stop()

	// Initial sweep so the dashboard has a critical set before the first tick
	go func() {
		if _, err := sentinelMgr.Sweep(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("Initial resource sweep failed")
		}
	}()

	server, err := web.NewServer(db, broker, web.Options{
		Addr:       cfg.Addr(),
		AllowedNet: allowedNet,
		Operator:   operator,
		Timeouts:   cfg.Timeouts(),
		Dev:        cfg.Dev,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	server.Handlers().SetVersionInfo(version, commit, date)

	if watcher := watchEnvFile(sentinelMgr); watcher != nil {
		defer watcher.Stop()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Server error")
		return err
	}

	log.Info().Msg("Heistops stopped")
	return nil
}

// newAlertManager builds the outbound alert providers that are configured
func newAlertManager(cfg config.AlertConfig) (*notification.Manager, error) {
	var providers []notification.Provider
	if cfg.DiscordWebhookURL != "" {
		p, err := notification.NewDiscordProvider(cfg.DiscordWebhookURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.WebhookURL != "" {
		p, err := notification.NewWebhookProvider(notification.WebhookConfig{
			URL:     cfg.WebhookURL,
			Method:  cfg.WebhookMethod,
			Body:    cfg.WebhookBody,
			Headers: notification.ParseHeaders(cfg.WebhookHeaders),
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return notification.NewManager(cfg.Timeout, providers...), nil
}

// watchEnvFile reloads the log level and sentinel schedules when the env file
// changes. It returns nil when there is no env file to watch.
func watchEnvFile(sentinelMgr *sentinel.Manager) *config.EnvWatcher {
	if _, err := os.Stat(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", envFile).Msg("Cannot watch env file")
		}
		return nil
	}

	watcher, err := config.NewEnvWatcher(envFile, func(cfg *config.Config) {
		// Verbosity flags win over the file
		if verbosity == 0 {
			logging.ApplyLevel(cfg.Log.Level)
		}
		if err := sentinelMgr.UpdateSchedules(sentinel.Config{
			WatchSchedule:       cfg.WatchSchedule,
			MaintenanceSchedule: cfg.MaintenanceSchedule,
		}); err != nil {
			log.Error().Err(err).Msg("Failed to apply reloaded sentinel schedules")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create env file watcher")
		return nil
	}
	if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start env file watcher")
		return nil
	}
	return watcher
}

func runMenu(cmd *cobra.Command, args []string) error {
	_, db, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = cli.NewMenu(db, os.Stdin, os.Stdout).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runExport(cmd *cobra.Command, args []string) error {
	kind, err := export.ParseKind(args[0])
	if err != nil {
		return err
	}

	_, db, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	var buf bytes.Buffer
	if err := export.Write(cmd.Context(), db, kind, &buf); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Export failed")
		return err
	}

	path := outputPath
	if path == "" {
		path = export.FileName(kind, time.Now())
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Info().Str("kind", string(kind)).Str("file", path).Msg("Exported CSV")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, db, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Str("database", cfg.DBPath).Msg("Database schema is up to date")

	if vacuum {
		start := time.Now()
		if err := db.Vacuum(cmd.Context()); err != nil {
			log.Error().Err(err).Msg("Vacuum failed")
			return err
		}
		log.Info().Dur("duration", time.Since(start)).Msg("Database vacuumed")
	}
	return nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
