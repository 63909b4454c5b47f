package repository

import (
	"context"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	pkgkafka "marketpulse/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Keys are symbols so one
// instrument's events stay ordered within a partition.
type KafkaPublisher struct {
	producer         *pkgkafka.Producer
	signalTopic      string
	liquidationTopic string
}

// NewKafkaPublisher creates a Kafka-backed publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, signalTopic, liquidationTopic string) repository.Publisher {
	return &KafkaPublisher{
		producer:         producer,
		signalTopic:      signalTopic,
		liquidationTopic: liquidationTopic,
	}
}

func (p *KafkaPublisher) PublishSignal(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.signalTopic, []byte(s.Symbol), s)
}

func (p *KafkaPublisher) PublishLiquidation(ctx context.Context, l *models.Liquidation) error {
	return p.producer.Publish(ctx, p.liquidationTopic, []byte(l.Symbol), map[string]interface{}{
		"symbol":   l.Symbol,
		"side":     l.Side,
		"price":    l.Price,
		"qty":      l.Quantity,
		"notional": l.NotionalUSD,
		"at":       l.At.UnixMilli(),
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
