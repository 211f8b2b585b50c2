package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	animalstore "pawhaven/internal/animal/store"
	donationstore "pawhaven/internal/donation/store"
	guardianshiphandler "pawhaven/internal/guardianship/handler"
	guardianshipservice "pawhaven/internal/guardianship/service"
	guardianshipstore "pawhaven/internal/guardianship/store"
	jwttoken "pawhaven/internal/jwt_token"
	"pawhaven/internal/payment/callback"
	paymenthandler "pawhaven/internal/payment/handler"
	"pawhaven/internal/payment/methods"
	"pawhaven/internal/payment/reconciliation"
	"pawhaven/internal/platform/config"
	"pawhaven/internal/platform/metrics"
	"pawhaven/internal/platform/middleware"
	platformredis "pawhaven/internal/platform/redis"
	"pawhaven/internal/scheduler"
	subscriptionhandler "pawhaven/internal/subscription/handler"
	subscriptionservice "pawhaven/internal/subscription/service"
	subscriptionstore "pawhaven/internal/subscription/store"
	"pawhaven/migrations"
	id "pawhaven/pkg/domain"
	"pawhaven/pkg/platform/events"
	"pawhaven/pkg/platform/events/kafka"
	"pawhaven/pkg/platform/httputil"
)

// app is the fully wired process: HTTP router, sweep scheduler and the
// resources to release on shutdown.
type app struct {
	router    http.Handler
	scheduler *scheduler.Scheduler
	// animals is set in memory mode so operators and tests can seed the
	// catalog.
	animals *animalstore.InMemoryAnimalStore
	checks  map[string]func(context.Context) error
	closers []func() error
}

type stores struct {
	guardianships guardianshipservice.Store
	animals       guardianshipservice.AnimalStore
	tx            guardianshipservice.StoreTx
	donations     reconciliation.DonationStore
	subscriptions subscriptionservice.Store
	methods       methodResolver
}

type methodResolver interface {
	RequirePaymentMethodIDByProvider(ctx context.Context, provider string) (id.PaymentMethodID, error)
}

func buildApp(ctx context.Context, cfg config.Server, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{checks: map[string]func(context.Context) error{}}
	m := metrics.NewWithRegisterer(reg)

	st, err := a.buildStores(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	publisher, err := a.buildPublisher(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	subscriptions := subscriptionservice.New(st.subscriptions, st.methods, cfg.Payment.Provider,
		subscriptionservice.WithLogger(log),
		subscriptionservice.WithMetrics(m),
		subscriptionservice.WithPublisher(publisher),
		subscriptionservice.WithGuardianships(st.guardianships),
	)
	guardianships := guardianshipservice.New(st.guardianships, st.animals, st.tx,
		guardianshipservice.WithLogger(log),
		guardianshipservice.WithMetrics(m),
		guardianshipservice.WithPublisher(publisher),
		guardianshipservice.WithSubscriptions(subscriptions),
		guardianshipservice.WithDefaultGraceDays(cfg.GraceDays),
	)
	reconciler := reconciliation.New(st.donations, st.methods, guardianships, subscriptions,
		reconciliation.WithLogger(log),
		reconciliation.WithMetrics(m),
		reconciliation.WithPublisher(publisher),
	)
	processor := callback.New(cfg.Payment.Provider, cfg.Payment.PrivateKey, reconciler,
		callback.WithLogger(log),
		callback.WithMetrics(m),
	)

	locker, err := a.buildLocker(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	sched := scheduler.New(cfg.SweepInterval,
		scheduler.WithLogger(log),
		scheduler.WithLocker(locker, cfg.SweepLockTTL),
	)
	sched.Register(scheduler.SweepGuardianships, guardianships.AutoCompleteExpired)
	sched.Register(scheduler.SweepSubscriptions, subscriptions.CancelExpired)
	a.scheduler = sched

	validator := jwttoken.NewValidator(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))

	paymenthandler.New(processor, log, m).Register(r)
	guardianshiphandler.New(guardianships, log, m, validator).Register(r)
	subscriptionhandler.New(subscriptions, log, m, validator).Register(r)

	if cfg.MetricsEnabled {
		if gatherer, ok := reg.(prometheus.Gatherer); ok {
			r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		}
	}
	r.Get("/healthz", a.handleHealth)

	a.router = r
	return a, nil
}

func (a *app) buildStores(ctx context.Context, cfg config.Server, log *slog.Logger) (stores, error) {
	configured, err := methods.ParseList(cfg.Payment.Methods)
	if err != nil {
		return stores{}, fmt.Errorf("PAYMENT_METHODS: %w", err)
	}

	if cfg.Database.URL == "" {
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		if _, ok := configured[cfg.Payment.Provider]; !ok {
			configured[cfg.Payment.Provider] = id.PaymentMethodID(uuid.New())
		}
		gStore := guardianshipstore.NewInMemory()
		aStore := animalstore.NewInMemory()
		a.animals = aStore
		return stores{
			guardianships: gStore,
			animals:       aStore,
			tx:            guardianshipservice.NewShardedTx(guardianshipservice.TxStores{Guardianships: gStore, Animals: aStore}),
			donations:     donationstore.NewInMemory(),
			subscriptions: subscriptionstore.NewInMemory(),
			methods:       methods.NewStatic(configured),
		}, nil
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return stores{}, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return stores{}, fmt.Errorf("ping database: %w", err)
	}
	a.checks["database"] = db.PingContext

	if cfg.RunMigrations {
		if err := migrations.Up(db); err != nil {
			return stores{}, err
		}
	}

	resolver := methods.NewPostgres(db)
	if err := resolver.Seed(ctx, configured); err != nil {
		return stores{}, err
	}

	return stores{
		guardianships: guardianshipstore.NewPostgres(db),
		animals:       animalstore.NewPostgres(db),
		tx:            newGuardianshipPostgresTx(db),
		donations:     donationstore.NewPostgres(db),
		subscriptions: subscriptionstore.NewPostgres(db),
		methods:       resolver,
	}, nil
}

func (a *app) buildPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Noop{}, nil
	}
	p, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.LifecycleTopic, kafka.WithLogger(log))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { p.Close(); return nil })
	a.checks["kafka"] = p.Health
	if err := p.EnsureTopic(ctx, 3, -1); err != nil {
		log.WarnContext(ctx, "lifecycle topic not verified", "topic", cfg.Kafka.LifecycleTopic, "error", err)
	}
	return p, nil
}

func (a *app) buildLocker(ctx context.Context, cfg config.Server) (scheduler.Locker, error) {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return scheduler.NoopLocker{}, nil
	}
	a.closers = append(a.closers, client.Close)
	a.checks["redis"] = client.Health
	return platformredis.NewLocker(client), nil
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]any{"healthy": healthy, "checks": status})
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
