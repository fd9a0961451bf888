package worker

import (
	"context"
	"encoding/json"
	"log"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AuditWorker consumes order events and writes the audit trail
type AuditWorker struct {
	consumer *broker.Consumer
	logger   *zap.Logger
}

// NewAuditWorker creates an audit worker
func NewAuditWorker(consumer *broker.Consumer) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting order audit worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping order audit worker...")
	return w.consumer.Close()
}

func (w *AuditWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		w.logger.Error("Failed to unmarshal event", zap.Error(err))
		return err
	}

	switch base.EventType {
	case models.EventTypeOrderSubmitted:
		var event models.OrderSubmittedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		w.logger.Info("order audit",
			zap.String("event", base.EventType),
			zap.String("reference", event.Reference),
			zap.Int64("remote_order_id", event.RemoteOrderID),
			zap.Int("items", event.ItemCount),
			zap.Float64("total", event.Total))

	case models.EventTypeOrderFailed:
		var event models.OrderFailedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		w.logger.Warn("order audit",
			zap.String("event", base.EventType),
			zap.String("reference", event.Reference),
			zap.String("reason", event.Reason))

	default:
		w.logger.Debug("Unhandled event type", zap.String("type", base.EventType))
	}

	return nil
}
