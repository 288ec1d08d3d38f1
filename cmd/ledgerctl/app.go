package main

import (
	"context"
	"errors"
	"fmt"

	appledger "github.com/residentia/backend/internal/application/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/cache"
	"github.com/residentia/backend/internal/infrastructure/config"
	"github.com/residentia/backend/internal/infrastructure/event"
	"github.com/residentia/backend/internal/infrastructure/logger"
	"github.com/residentia/backend/internal/infrastructure/persistence"
	"github.com/residentia/backend/internal/infrastructure/storage"
	"github.com/residentia/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const meterName = "github.com/residentia/backend/ledger"

// app holds everything one ledgerctl invocation needs. It is built per
// invocation and torn down by close.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db          *persistence.Database
	serializer  *event.EventSerializer
	metrics     *telemetry.LedgerMetrics
	idempotency shared.IdempotencyStore
	storage     appledger.ObjectStorageService

	accounts *appledger.AccountService
	payments *appledger.PaymentService
	cashouts *appledger.CashoutService
	vouchers *appledger.VoucherService

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, objectStorage appledger.ObjectStorageService) (_ *app, err error) {
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultConfig().TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	if err := a.initTelemetry(ctx); err != nil {
		return nil, err
	}

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        cfg.Database.Driver,
	}, a.logger)
	gormLog := logger.NewGormLogger(a.logger, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog), persistence.WithTracing(tracing))
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	opts := []appledger.ServiceOption{
		appledger.WithLogger(a.logger),
		appledger.WithMetrics(a.metrics),
	}
	if cfg.Idempotency.Enabled {
		store, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Idempotency, cache.WithLogger(a.logger)).CreateStore()
		if err != nil {
			return nil, err
		}
		a.idempotency = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		opts = append(opts, appledger.WithIdempotencyStore(store, cfg.Idempotency.TTL))
	}

	a.serializer = event.NewLedgerSerializer()
	scope := persistence.NewGormLedgerTransactionScope(db.DB, event.NewOutboxPublisher(a.serializer, cfg.Event.MaxRetries))

	accountStore := persistence.NewGormAccountStore(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	cashoutRepo := persistence.NewGormCashoutRepository(db.DB)
	movementRepo := persistence.NewGormAccountMovementRepository(db.DB)

	a.accounts = appledger.NewAccountService(scope, accountStore, movementRepo, opts...)
	a.payments = appledger.NewPaymentService(scope, paymentRepo, opts...)
	a.cashouts = appledger.NewCashoutService(scope, cashoutRepo, opts...)

	if objectStorage == nil {
		objectStorage, err = a.newObjectStorage()
		if err != nil {
			return nil, err
		}
	}
	a.storage = objectStorage
	a.vouchers = appledger.NewVoucherService(objectStorage, paymentRepo, cashoutRepo, appledger.WithLogger(a.logger))
	voucherCfg := appledger.DefaultVoucherServiceConfig()
	voucherCfg.UploadURLExpiry = cfg.Storage.PresignExpiration
	a.vouchers.SetConfig(voucherCfg)

	return a, nil
}

// initTelemetry installs the OTLP providers and the ledger instruments.
// Disabled providers fall back to the global no-op implementations.
func (a *app) initTelemetry(ctx context.Context) error {
	tc := a.cfg.Telemetry

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled && tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.closers = append(a.closers, mp.Shutdown)

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log export: %w", err)
	}
	a.closers = append(a.closers, lp.Shutdown)
	if lp.IsEnabled() {
		core := telemetry.NewZapOTELCore(tc.ServiceName, lp, logger.ParseLevel(a.cfg.Log.Level))
		a.logger = telemetry.NewBridgedLogger(a.logger, core)
	}

	metrics, err := telemetry.NewLedgerMetrics(mp.Meter(meterName))
	if err != nil {
		return fmt.Errorf("failed to create ledger metrics: %w", err)
	}
	a.metrics = metrics
	return nil
}

func (a *app) newObjectStorage() (appledger.ObjectStorageService, error) {
	if !a.cfg.Storage.Enabled {
		a.logger.Debug("object storage disabled, voucher files are kept in memory")
		return storage.NewMemoryObjectStorage(), nil
	}
	s3, err := storage.NewS3ObjectStorage(&a.cfg.Storage,
		storage.WithLogger(a.logger),
		storage.WithPresignExpiration(a.cfg.Storage.PresignExpiration),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	return s3, nil
}

// close releases resources in reverse order of acquisition
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
