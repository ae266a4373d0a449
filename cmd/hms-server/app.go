package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/domain/dashboard"
	"github.com/hms/hms/internal/domain/department"
	"github.com/hms/hms/internal/domain/labtest"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/internal/platform/collection"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/recordstore"
	"github.com/hms/hms/internal/platform/sandbox"
	"github.com/hms/hms/internal/platform/telemetry"
	"github.com/hms/hms/internal/platform/webhook"
	"github.com/hms/hms/internal/platform/workset"
)

const (
	serviceName    = "hms-server"
	serviceVersion = "0.1.0"
	requestTimeout = 30 * time.Second
	poolReportTick = 15 * time.Second
)

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// backend is the opened record store plus the pool behind it when the
// postgres backend is selected.
type backend struct {
	store recordstore.Store
	pool  *pgxpool.Pool
}

func (b *backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger, obs recordstore.Observer) (*backend, error) {
	b := &backend{}
	switch cfg.StoreBackend {
	case config.BackendMemory:
		b.store = recordstore.NewMemory()
		logger.Warn().Msg("using in-memory record store, data is lost on restart")
	case config.BackendRemote:
		client, err := recordstore.NewHTTPClient(recordstore.HTTPConfig{
			BaseURL: cfg.RecordStoreURL,
			Secret:  cfg.RecordStoreSecret,
			Issuer:  serviceName,
			Timeout: cfg.RecordStoreTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("record store client: %w", err)
		}
		b.store = client
		logger.Info().Str("url", cfg.RecordStoreURL).Msg("using remote record store")
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		b.pool = pool
		b.store = recordstore.NewPostgres(pool)
		logger.Info().Msg("connected to database")
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	b.store = recordstore.Instrument(b.store, obs)
	return b, nil
}

// newPublisher picks Kafka when brokers are configured and falls back to
// the log publisher. Events also go to each of extra. Every published event
// bumps the mutation counter.
func newPublisher(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics, extra ...events.Publisher) (events.Publisher, error) {
	var pub events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing record events to kafka")
		pub = kp
	} else {
		pub = events.NewLogPublisher(logger)
	}
	if len(extra) > 0 {
		pub = events.Fanout(append([]events.Publisher{pub}, extra...)...)
	}
	if metrics == nil {
		return pub, nil
	}
	return events.Observe(pub, func(ev events.Event) {
		metrics.ObserveMutation(ev.Entity, string(ev.Action))
	}), nil
}

// services holds one service per entity, cross-wired for display names.
type services struct {
	departments  *department.Service
	staff        *staff.Service
	patients     *patient.Service
	appointments *appointment.Service
	bills        *billing.Service
	labTests     *labtest.Service
	dashboard    *dashboard.Service
}

func newServices(store recordstore.Store, opts workset.Options, policy billing.OverduePolicy) *services {
	s := &services{
		departments:  department.NewService(department.NewRepository(store), opts),
		staff:        staff.NewService(staff.NewRepository(store), opts),
		patients:     patient.NewService(patient.NewRepository(store), opts),
		appointments: appointment.NewService(appointment.NewRepository(store), opts),
		bills:        billing.NewService(billing.NewRepository(store), opts, policy),
		labTests:     labtest.NewService(labtest.NewRepository(store), opts),
	}
	s.staff.SetDepartmentDirectory(s.departments)
	s.patients.SetDoctorDirectory(s.staff)
	s.appointments.SetDirectories(s.patients, s.staff)
	s.bills.SetPatientDirectory(s.patients)
	s.labTests.SetPatientDirectory(s.patients)
	s.dashboard = dashboard.NewService(s.patients, s.appointments, s.departments, s.staff, opts.Clock)
	return s
}

func (s *services) seeder(logger zerolog.Logger, clock collection.Clock) *sandbox.Seeder {
	return sandbox.NewSeeder(sandbox.Targets{
		Departments:  s.departments,
		Staff:        s.staff,
		Patients:     s.patients,
		Appointments: s.appointments,
		Bills:        s.bills,
		LabTests:     s.labTests,
	}, logger, clock)
}

type routerDeps struct {
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	services *services
	pool     *pgxpool.Pool
	seeder   *sandbox.Seeder
	webhooks *webhook.Manager
}

func newRouter(d routerDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(telemetry.TracingMiddleware(serviceName))
	if d.metrics != nil {
		e.Use(d.metrics.Middleware())
	}
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))
	e.Use(echomw.BodyLimit("2M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": serviceVersion,
			"store":   d.cfg.StoreBackend,
		})
	})
	if d.pool != nil {
		e.GET("/health/db", db.HealthHandler(d.pool))
	}
	if d.metrics != nil {
		e.GET("/metrics", d.metrics.Handler())
	}

	api := e.Group("/api/v1")
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: d.cfg.RateLimitRPS,
		BurstSize:         d.cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rl))
	api.Use(middleware.RequestTimeout(requestTimeout))

	department.NewHandler(d.services.departments).RegisterRoutes(api)
	staff.NewHandler(d.services.staff).RegisterRoutes(api)
	patient.NewHandler(d.services.patients).RegisterRoutes(api)
	appointment.NewHandler(d.services.appointments).RegisterRoutes(api)
	billing.NewHandler(d.services.bills).RegisterRoutes(api)
	labtest.NewHandler(d.services.labTests).RegisterRoutes(api)
	dashboard.NewHandler(d.services.dashboard).RegisterRoutes(api)

	if d.webhooks != nil {
		webhook.NewHandler(d.webhooks).RegisterRoutes(api)
	}
	if d.seeder != nil {
		sandbox.NewSeedHandler(d.seeder).RegisterRoutes(api)
	}
	return e
}
