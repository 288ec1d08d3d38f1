package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	appevent "github.com/residentia/backend/internal/application/event"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/cache"
	"github.com/residentia/backend/internal/infrastructure/event"
	"go.uber.org/zap"
)

const relayShutdownTimeout = 30 * time.Second

// relay owns the publisher side of the outbox: Kafka, or the in-process
// bus with the audit log subscribed.
type relay struct {
	processor *event.OutboxProcessor
	stop      func(context.Context) error
}

func (a *app) newRelay(ctx context.Context) (*relay, error) {
	var (
		publisher shared.EventPublisher
		stop      func(context.Context) error
	)

	switch a.cfg.Event.Publisher {
	case "kafka":
		kafka, err := event.NewKafkaEventPublisher(a.cfg.Kafka, a.serializer, a.logger)
		if err != nil {
			return nil, err
		}
		publisher = kafka
		stop = func(context.Context) error { return kafka.Close() }

	default:
		bus := event.NewInMemoryEventBus(a.logger)
		bus.Subscribe(event.NewIdempotentHandler(
			event.NewAuditLogHandler(a.logger),
			a.handlerIdempotencyStore(),
			a.logger,
			event.WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: true, TTL: a.cfg.Idempotency.TTL}),
		))
		if err := bus.Start(ctx); err != nil {
			return nil, err
		}
		publisher = bus
		stop = bus.Stop
	}

	processor := event.NewOutboxProcessor(
		event.NewGormOutboxRepository(a.db.DB),
		publisher,
		a.serializer,
		event.OutboxProcessorConfig{
			BatchSize:        a.cfg.Event.BatchSize,
			PollInterval:     a.cfg.Event.PollInterval,
			CleanupEnabled:   a.cfg.Event.CleanupEnabled,
			CleanupRetention: a.cfg.Event.CleanupRetention,
		},
		a.logger,
		event.WithRelayMetrics(a.metrics),
	)
	return &relay{processor: processor, stop: stop}, nil
}

// handlerIdempotencyStore deduplicates redelivered events. It reuses the
// command store when one is configured so redis-backed deployments share
// the marks across relay instances.
func (a *app) handlerIdempotencyStore() shared.IdempotencyStore {
	if a.idempotency != nil {
		return a.idempotency
	}
	store := cache.NewInMemoryIdempotencyStore()
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	return store
}

func relayRun(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("relay run", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	a := inv.app
	r, err := a.newRelay(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.processor.Start(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("relay running",
		zap.String("publisher", a.cfg.Event.Publisher),
		zap.Duration("poll_interval", a.cfg.Event.PollInterval),
	)

	<-ctx.Done()
	a.logger.Info("relay shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), relayShutdownTimeout)
	defer cancel()
	if err := r.processor.Stop(shutdownCtx); err != nil {
		return nil, fmt.Errorf("stop outbox processor: %w", err)
	}
	return nil, r.stop(shutdownCtx)
}

func relayOnce(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("relay once", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	r, err := inv.app.newRelay(ctx)
	if err != nil {
		return nil, err
	}
	stats, relayErr := r.processor.RelayOnce(ctx)
	if err := r.stop(context.WithoutCancel(ctx)); err != nil && relayErr == nil {
		relayErr = err
	}
	if relayErr != nil {
		return nil, relayErr
	}
	return stats, nil
}

func (a *app) outboxService() *appevent.OutboxService {
	return appevent.NewOutboxService(event.NewGormOutboxRepository(a.db.DB), a.logger)
}

func relayStatus(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("relay status", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	return inv.app.outboxService().GetStats(ctx)
}

func relayDead(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("relay dead", flag.ContinueOnError)
	var p pageFlags
	p.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	return inv.app.outboxService().GetDeadLetterEntries(ctx, p.page, p.pageSize)
}

func relayRequeue(ctx context.Context, inv *invocation, args []string) (any, error) {
	fs := flag.NewFlagSet("relay requeue", flag.ContinueOnError)
	id := idFlag(fs)
	all := fs.Bool("all", false, "requeue every dead entry")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}

	svc := inv.app.outboxService()
	if *all {
		count, err := svc.RetryAllDeadEntries(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"requeued": count}, nil
	}
	if err := requireFlags(fs, "id"); err != nil {
		return nil, err
	}
	return svc.RetryDeadEntry(ctx, id.value())
}
