package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedAccount struct {
	ID      uint `gorm:"primaryKey"`
	Balance int64
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedAccount{}))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	require.NoError(t, plugin.Register(db))

	assert.Nil(t, db.Callback().Update().Get("ledger_trace:after_update"))
}

func TestDBTracingPlugin_Enabled(t *testing.T) {
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	assert.NotNil(t, db.Callback().Update().Get("ledger_trace:after_update"))
	require.NoError(t, db.Create(&tracedAccount{Balance: 10}).Error)
}

func TestDBTracingPlugin_AfterAnnotatesSpan(t *testing.T) {
	db := setupTestDB(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.NewNop())

	ctx, span := tp.Tracer("test").Start(context.Background(), "account.adjust")
	ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second))

	stmt := db.WithContext(ctx)
	stmt.Statement.Table = "accounts"
	stmt.Statement.RowsAffected = 0
	plugin.after(stmt)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.Int64("db.rows_affected", 0))
	assert.Contains(t, attrs, attribute.String("db.sql.table", "accounts"))
	assert.Contains(t, attrs, attribute.Bool("db.slow_query", true))
}
