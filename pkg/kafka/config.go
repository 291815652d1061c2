package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds writer settings.
type ProducerConfig struct {
	Brokers          []string
	RequiredAcks     int
	Compression      string
	MaxAttempts      int
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	BatchSize        int
	BatchBytes       int
	BatchTimeout     time.Duration
	Async            bool
	HashByKey        bool
	AutoCreateTopics bool
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression sets gzip, snappy, lz4 or zstd. Unknown values fall back to gzip.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		if compression != "" {
			c.Compression = compression
		}
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithBatching sets size, byte and linger limits. Zero values keep the defaults.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.BatchTimeout = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithAsync toggles fire-and-forget writes.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// WithHashByKey keeps per-symbol ordering by hashing the message key.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

func WithAutoCreateTopics(v bool) ProducerOption {
	return func(c *ProducerConfig) { c.AutoCreateTopics = v }
}
