package repository

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

var (
	_ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
	_ applogger.Publisher     = (*KafkaResultPublisher)(nil)
	_ domrepo.ResultPublisher = NopResultPublisher{}
)

// Producer is the part of pkg/kafka.Producer the publisher uses.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// ResultEvent is the envelope of every published forecasting result.
type ResultEvent struct {
	Type        string      `json:"type"`
	Symbol      string      `json:"symbol"`
	PublishedAt time.Time   `json:"published_at"`
	Payload     interface{} `json:"payload"`
}

const (
	EventComparison = "backtest.comparison"
	EventProjection = "forecast.projection"
)

// KafkaResultPublisher publishes result events keyed by symbol, so that all
// events of one symbol land on one partition.
type KafkaResultPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaResultPublisher(p Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (p *KafkaResultPublisher) PublishComparison(ctx context.Context, symbol string, cmp *models.ComparisonResult) error {
	return p.publish(ctx, EventComparison, symbol, cmp)
}

func (p *KafkaResultPublisher) PublishProjection(ctx context.Context, symbol string, fp *models.FutureProjection) error {
	return p.publish(ctx, EventProjection, symbol, fp)
}

func (p *KafkaResultPublisher) publish(ctx context.Context, typ, symbol string, payload interface{}) error {
	ev := ResultEvent{Type: typ, Symbol: symbol, PublishedAt: time.Now().UTC(), Payload: payload}
	if err := p.producer.Publish(ctx, p.topic, []byte(symbol), ev); err != nil {
		return fmt.Errorf("publish %s: %w", typ, err)
	}
	return nil
}

// PublishMessage ships aggregated error logs for the log collector.
func (p *KafkaResultPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaResultPublisher) Close() error {
	return p.producer.Close()
}

// NopResultPublisher discards results when Kafka is disabled.
type NopResultPublisher struct{}

func (NopResultPublisher) PublishComparison(context.Context, string, *models.ComparisonResult) error {
	return nil
}

func (NopResultPublisher) PublishProjection(context.Context, string, *models.FutureProjection) error {
	return nil
}

func (NopResultPublisher) Close() error { return nil }
