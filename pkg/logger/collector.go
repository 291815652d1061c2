package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Publisher ships aggregated log batches, e.g. to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // unique entries that force an early flush
	Topic          string
	Publisher      Publisher
	OnError        func(error) // publish failures; ignored when nil
}

// AggregatedLogEntry counts identical log lines between flushes.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector deduplicates error logs and publishes them in batches.
type LogCollector struct {
	config  CollectionConfig
	mu      sync.Mutex
	entries map[string]*AggregatedLogEntry
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	c := &LogCollector{
		config:  cfg,
		entries: make(map[string]*AggregatedLogEntry),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []AggregatedLogEntry
	if len(c.entries) >= c.config.CountThreshold {
		batch = c.drainLocked()
	}
	c.mu.Unlock()

	if batch != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.publish(batch)
		}()
	}
}

// Flush publishes pending entries synchronously.
func (c *LogCollector) Flush() {
	c.mu.Lock()
	batch := c.drainLocked()
	c.mu.Unlock()
	c.publish(batch)
}

// Close stops the flush loop after a final flush and waits for in-flight publishes.
func (c *LogCollector) Close() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *LogCollector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Flush()
		case <-c.done:
			c.Flush()
			return
		}
	}
}

func (c *LogCollector) drainLocked() []AggregatedLogEntry {
	if len(c.entries) == 0 {
		return nil
	}
	batch := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, *e)
	}
	c.entries = make(map[string]*AggregatedLogEntry)
	sort.Slice(batch, func(i, j int) bool { return batch[i].Count > batch[j].Count })
	return batch
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.config.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil && c.config.OnError != nil {
		c.config.OnError(err)
	}
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	// json.Marshal sorts map keys, so equal field sets hash equally.
	b, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
		C string                 `json:"c"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
