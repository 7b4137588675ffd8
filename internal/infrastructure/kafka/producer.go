package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jiftechnify/upix-backend/internal/cfg"
	"github.com/jiftechnify/upix-backend/internal/usecase"
	"github.com/jiftechnify/upix-backend/pkg/e"
	"github.com/jiftechnify/upix-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

// Producer publishes ingest events. The message key is the content hash, so
// events for the same image land on the same partition.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

func (p *Producer) PublishIngested(ctx context.Context, event *usecase.ImageIngestedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Hash),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
