package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics counts balance transitions, rejected commands, drift and
// outbox relay activity. A nil *LedgerMetrics records nothing, so services
// can hold one unconditionally.
type LedgerMetrics struct {
	transitions   *Counter
	amounts       *Histogram
	rejections    *Counter
	drift         *Counter
	relayed       *Counter
	relayFailures *Counter
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		lm  LedgerMetrics
		err error
	)
	if lm.transitions, err = NewCounter(meter, "ledger_balance_transitions_total",
		"Balance adjustments applied to accounts", "{transitions}"); err != nil {
		return nil, err
	}
	if lm.amounts, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_transition_amount",
		Description: "Absolute amount moved per balance adjustment",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.rejections, err = NewCounter(meter, "ledger_rejections_total",
		"Create and edit commands rejected, by error code", "{commands}"); err != nil {
		return nil, err
	}
	if lm.drift, err = NewCounter(meter, "ledger_reconciliation_drift_total",
		"Reconciliations whose stored balance disagreed with the paid records", "{accounts}"); err != nil {
		return nil, err
	}
	if lm.relayed, err = NewCounter(meter, "ledger_outbox_relayed_total",
		"Outbox events delivered to the broker", "{events}"); err != nil {
		return nil, err
	}
	if lm.relayFailures, err = NewCounter(meter, "ledger_outbox_relay_failures_total",
		"Outbox delivery attempts that failed", "{events}"); err != nil {
		return nil, err
	}
	return &lm, nil
}

// RecordTransition records a non-zero balance adjustment caused by source.
func (m *LedgerMetrics) RecordTransition(ctx context.Context, source, kind string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrSourceType.String(source), AttrTransitionKind.String(kind)}
	m.transitions.Inc(ctx, attrs...)
	m.amounts.Record(ctx, amount.Abs().InexactFloat64(), attrs...)
}

// RecordRejection records a rejected command with its error code.
func (m *LedgerMetrics) RecordRejection(ctx context.Context, source, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "INTERNAL"
	}
	m.rejections.Inc(ctx, AttrSourceType.String(source), AttrErrorCode.String(code))
}

// RecordDrift records an account found out of balance.
func (m *LedgerMetrics) RecordDrift(ctx context.Context, communityID string) {
	if m == nil {
		return
	}
	m.drift.Inc(ctx, AttrCommunityID.String(communityID))
}

// RecordRelay records the outcome of delivering one outbox event.
func (m *LedgerMetrics) RecordRelay(ctx context.Context, eventType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.relayFailures.Inc(ctx, AttrEventType.String(eventType))
		return
	}
	m.relayed.Inc(ctx, AttrEventType.String(eventType))
}
