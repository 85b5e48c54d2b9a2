package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

const (
	routingKeyCreated       = "booking.created"
	routingKeyStatusChanged = "booking.status_changed"
	publishTimeout          = 5 * time.Second
)

// AMQPSink publishes booking events to a topic exchange for the payment and
// waiver services. Publish failures are logged and dropped: the booking is
// already committed and must not be rolled back over a broker hiccup.
type AMQPSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

func NewAMQPSink(url, exchange string, log *zap.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSink{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

func (s *AMQPSink) BookingCreated(ctx context.Context, b domain.Booking) {
	s.publish(ctx, routingKeyCreated, BookingCreated{
		BookingID:     b.ID,
		BusinessID:    b.BusinessID,
		CustomerID:    b.CustomerID,
		Status:        string(b.Status),
		EventDate:     b.EventDate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		TotalAmount:   b.TotalAmount.StringFixed(2),
		DepositAmount: b.DepositAmount.StringFixed(2),
		OccurredAt:    time.Now().UTC(),
	})
}

func (s *AMQPSink) BookingStatusChanged(ctx context.Context, b domain.Booking, from domain.BookingStatus, event string) {
	s.publish(ctx, routingKeyStatusChanged, BookingStatusChanged{
		BookingID:  b.ID,
		BusinessID: b.BusinessID,
		From:       string(from),
		To:         string(b.Status),
		Event:      event,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *AMQPSink) publish(ctx context.Context, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal event", zap.String("key", key), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = s.ch.PublishWithContext(pubCtx, s.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		s.log.Error("publish event", zap.String("key", key), zap.Error(err))
	}
}

func (s *AMQPSink) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
