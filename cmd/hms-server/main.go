package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/sandbox"
	"github.com/hms/hms/internal/platform/telemetry"
	"github.com/hms/hms/internal/platform/webhook"
	"github.com/hms/hms/internal/platform/workset"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hms-server",
		Short:         "Hospital administration API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations (postgres backend)",
	}

	var dir string
	var target int
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				n, err := m.UpTo(ctx, target)
				if err != nil {
					return err
				}
				fmt.Printf("Applied %d migration(s)\n", n)
				return nil
			})
		},
	}
	upCmd.Flags().IntVar(&target, "to", 0, "Stop after this version (0 applies all)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%-8s %-40s %-8s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					state, at := "pending", ""
					if s.Applied {
						state = "applied"
					}
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%-8d %-40s %-8s %s\n", s.Version, s.Name, state, at)
				}
				return nil
			})
		},
	}

	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}

func withMigrator(ctx context.Context, dir string, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("migrations need STORE_BACKEND=%s, got %q", config.BackendPostgres, cfg.StoreBackend)
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, dir))
}

func seedCmd() *cobra.Command {
	var (
		file      string
		synthetic int
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write demo or synthetic records into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreBackend == config.BackendMemory {
				return fmt.Errorf("the memory backend does not outlive this command; set SEED_FILE and run serve instead")
			}
			logger := newLogger(cfg)

			b, err := openBackend(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer b.Close()

			pub, err := newPublisher(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer pub.Close()

			opts := workset.Options{Publisher: pub, Logger: logger, Clock: time.Now}
			svcs := newServices(b.store, opts, billing.OverduePolicy(cfg.BillOverduePolicy))
			seeder := svcs.seeder(logger, opts.Clock)

			var fx *sandbox.Fixtures
			switch {
			case synthetic > 0:
				sc := sandbox.DefaultSeedConfig()
				sc.PatientCount = synthetic
				sc.Seed = seed
				fx = seeder.Synthetic(sc)
			default:
				fx, err = loadFixtures(file)
				if err != nil {
					return err
				}
			}

			res, err := seeder.Seed(ctx, fx)
			if res != nil {
				fmt.Printf("Seeded %d record(s) in %s: %d departments, %d staff, %d patients, %d appointments, %d bills, %d lab tests\n",
					res.Total, res.Duration.Round(time.Millisecond), res.Departments, res.Staff, res.Patients, res.Appointments, res.Bills, res.LabTests)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Fixture YAML file (defaults to the built-in demo set)")
	cmd.Flags().IntVar(&synthetic, "synthetic", 0, "Generate this many synthetic patients instead of loading fixtures")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for synthetic data")
	return cmd
}

// loadFixtures reads path, or the built-in demo set when path is empty or
// "demo".
func loadFixtures(path string) (*sandbox.Fixtures, error) {
	if path == "" || path == "demo" {
		return sandbox.Demo()
	}
	return sandbox.LoadFile(path)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		Enabled:        cfg.OTelEnabled,
		Endpoint:       cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Insecure:       !cfg.IsProduction(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	metrics := telemetry.NewMetrics("hms")

	b, err := openBackend(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open record store")
	}
	defer b.Close()
	if b.pool != nil {
		go db.WatchPool(ctx, b.pool, poolReportTick, metrics.SetDBPool, logger)
	}

	hooks := webhook.NewManager(webhook.NewMemoryStore(0), logger)
	pub, err := newPublisher(cfg, logger, metrics, hooks)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("event publisher close failed")
		}
	}()

	opts := workset.Options{Publisher: pub, Logger: logger, Clock: time.Now}
	svcs := newServices(b.store, opts, billing.OverduePolicy(cfg.BillOverduePolicy))
	seeder := svcs.seeder(logger, opts.Clock)

	if cfg.SeedFile != "" {
		seedOnStart(ctx, seeder, cfg.SeedFile, logger)
	}

	deps := routerDeps{cfg: cfg, logger: logger, metrics: metrics, services: svcs, pool: b.pool, webhooks: hooks}
	if cfg.IsDev() {
		deps.seeder = seeder
	}
	e := newRouter(deps)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreBackend).Str("overdue_policy", cfg.BillOverduePolicy).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// seedOnStart loads SEED_FILE into the store. A failed seed is logged and
// the server still starts.
func seedOnStart(ctx context.Context, seeder *sandbox.Seeder, path string, logger zerolog.Logger) {
	fx, err := loadFixtures(path)
	if err != nil {
		logger.Error().Err(err).Str("file", path).Msg("failed to load seed file")
		return
	}
	res, err := seeder.Seed(ctx, fx)
	if err != nil {
		logger.Error().Err(err).Str("file", path).Int("written", res.Total).Msg("seeding stopped early")
		return
	}
	logger.Info().Str("file", path).Int("records", res.Total).Dur("took", res.Duration).Msg("seeded record store")
}
