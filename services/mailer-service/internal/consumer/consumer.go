package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/toxifacil/toxifacil/libs/kafkax"
	"github.com/toxifacil/toxifacil/services/mailer-service/internal/inbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler processes one deduplicated message. The inbox row is written
// before the handler runs, so a handler failure is not retried: the
// redelivered copy is skipped as a duplicate. Mail delivery is
// fire-and-forget.
type Handler func(ctx context.Context, msg kafka.Message) error

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

type Consumer struct {
	logger  *slog.Logger
	inbox   *inbox.Repository
	cfg     Config
	handler Handler
}

func New(logger *slog.Logger, inboxRepo *inbox.Repository, cfg Config, handler Handler) *Consumer {
	return &Consumer{
		logger:  logger,
		inbox:   inboxRepo,
		cfg:     cfg,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	brokers := kafkax.SplitBrokers(c.cfg.Brokers)
	if len(brokers) == 0 {
		c.logger.Warn("consumer disabled (no kafka brokers configured)")
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     c.cfg.GroupID,
		GroupTopics: c.cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	defer reader.Close()

	c.logger.Info("consumer starting", "topics", c.cfg.Topics, "group", c.cfg.GroupID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("fetch message failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		msgCtx := kafkax.ExtractTraceContext(ctx, msg)
		spanCtx, span := otel.Tracer("kafka").Start(msgCtx, "kafka.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
			),
		)
		meta := kafkax.ExtractEventMeta(msg)

		fresh, err := c.inbox.MarkProcessed(spanCtx, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox write failed", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
			span.End()
			continue
		}
		if fresh {
			if err := c.handler(spanCtx, msg); err != nil {
				c.logger.Error("handler failed", "err", err, "event_id", meta.EventID)
				span.RecordError(err)
				span.End()
				continue
			}
		} else {
			c.logger.Debug("duplicate event skipped", "event_id", meta.EventID)
		}
		span.End()

		if err := reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed", "err", err)
		}
	}
}
