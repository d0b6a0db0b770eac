// Package notification provides the default NotificationSink. Real
// deployments swap in a push-gateway client; the engine only sees the
// ports.NotificationSink interface.
package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// LogSink writes threshold alerts to the structured log.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, alert ports.ThresholdAlert) error {
	s.log.Warn().
		Str("pool_id", alert.PoolID).
		Str("institution_id", alert.InstitutionID).
		Str("level", string(alert.Level)).
		Int64("used", alert.UsedAmount).
		Int64("allocated", alert.AllocatedAmount).
		Time("raised_at", alert.RaisedAt).
		Msg("subsidy threshold alert")
	return nil
}
