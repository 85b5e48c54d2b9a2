package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// LogSink writes events to the structured log. It is the default sink and
// wraps an optional delegate (e.g. the AMQP publisher) so events are always
// observable even when the broker is down.
type LogSink struct {
	log  *zap.Logger
	next Sink
}

func NewLogSink(log *zap.Logger, next Sink) *LogSink {
	if next == nil {
		next = NopSink{}
	}
	return &LogSink{log: log, next: next}
}

func (s *LogSink) BookingCreated(ctx context.Context, b domain.Booking) {
	s.log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("business_id", b.BusinessID),
		zap.String("customer_id", b.CustomerID),
		zap.Time("start_time", b.StartTime),
		zap.Time("end_time", b.EndTime),
		zap.String("total", b.TotalAmount.StringFixed(2)),
	)
	s.next.BookingCreated(ctx, b)
}

func (s *LogSink) BookingStatusChanged(ctx context.Context, b domain.Booking, from domain.BookingStatus, event string) {
	s.log.Info("booking status changed",
		zap.String("booking_id", b.ID),
		zap.String("from", string(from)),
		zap.String("to", string(b.Status)),
		zap.String("event", event),
	)
	s.next.BookingStatusChanged(ctx, b, from, event)
}
