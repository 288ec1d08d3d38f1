package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ServiceOption configures the ledger services
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	logger         *zap.Logger
	metrics        *telemetry.LedgerMetrics
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
}

func newServiceConfig(opts []ServiceOption) serviceConfig {
	cfg := serviceConfig{
		logger:         zap.NewNop(),
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records ledger metrics on every operation
func WithMetrics(metrics *telemetry.LedgerMetrics) ServiceOption {
	return func(c *serviceConfig) {
		c.metrics = metrics
	}
}

// WithIdempotencyStore enables idempotency keys on create commands
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) ServiceOption {
	return func(c *serviceConfig) {
		c.idempotency = store
		if ttl > 0 {
			c.idempotencyTTL = ttl
		}
	}
}

// claimIdempotencyKey reserves key for a create command. The returned
// release func forgets the key again and must be called when the command
// fails so that the client can retry it.
func (c serviceConfig) claimIdempotencyKey(ctx context.Context, kind string, communityID uuid.UUID, key string) (func(), error) {
	if c.idempotency == nil || key == "" {
		return func() {}, nil
	}

	fullKey := fmt.Sprintf("ledger:%s:%s:%s", kind, communityID, key)
	fresh, err := c.idempotency.MarkProcessed(ctx, fullKey, c.idempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !fresh {
		return nil, shared.NewDomainError(shared.CodeDuplicateRequest,
			fmt.Sprintf("A %s with idempotency key %q was already submitted", kind, key))
	}

	return func() {
		if err := c.idempotency.Release(context.WithoutCancel(ctx), fullKey); err != nil {
			c.logger.Warn("failed to release idempotency key", zap.String("key", fullKey), zap.Error(err))
		}
	}, nil
}
