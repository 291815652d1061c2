package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON or raw payloads to Kafka topics.
type Producer struct {
	writer MessageWriter
	comp   string
}

// Message is a keyed payload for PublishBatch.
type Message struct {
	Key   []byte
	Value interface{}
}

// NewProducer builds a producer backed by a kafka-go Writer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: time.Second,
		HashByKey:    true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	bal := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            parseCompression(cfg.Compression),
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		BatchSize:              cfg.BatchSize,
		BatchBytes:             int64(cfg.BatchBytes),
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
	}
	return NewProducerWithWriter(w, cfg.Compression), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w MessageWriter, compression string) *Producer {
	initProducerMetrics()
	return &Producer{writer: w, comp: compression}
}

// Publish sends one message. Values other than []byte and string are JSON encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	start := time.Now()
	v, err := encode(value)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: v, Time: start})
	observeProducer(topic, p.comp, int64(len(v)), 1, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishBatch sends messages in one write call.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	start := time.Now()
	msgs := make([]kafka.Message, 0, len(messages))
	var total int64
	for _, m := range messages {
		v, err := encode(m.Value)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: start})
		total += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	observeProducer(topic, p.comp, total, len(msgs), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish batch %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func encode(value interface{}) ([]byte, error) {
	switch val := value.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return b, nil
	}
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMsgs    *prometheus.CounterVec
	producerBytes   *prometheus.CounterVec
	producerLatency *prometheus.HistogramVec
	producerOnce    sync.Once
)

func initProducerMetrics() {
	producerOnce.Do(func() {
		producerMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fincast_kafka_producer_messages_total",
			Help: "Messages published to Kafka",
		}, []string{"topic", "result"})
		producerBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fincast_kafka_producer_bytes_total",
			Help: "Payload bytes published to Kafka",
		}, []string{"topic", "compression"})
		producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fincast_kafka_producer_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

func observeProducer(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMsgs.WithLabelValues(topic, result).Add(float64(count))
	producerBytes.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
