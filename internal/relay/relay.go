// Package relay moves commerce notifications from NATS JetStream into the
// PostgreSQL event log.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/birbparty/birb-commerce/events"
	"github.com/birbparty/birb-commerce/internal/eventlog"
	"github.com/birbparty/birb-commerce/internal/telemetry"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Appender stores event records. It returns the number of new records.
type Appender interface {
	Append(ctx context.Context, records []eventlog.Record) (int, error)
}

// Consumer delivers message batches until ctx is done
type Consumer interface {
	Consume(ctx context.Context, handler func(msgs []*nats.Msg)) error
}

// Stats is a snapshot of relay counters
type Stats struct {
	Pending   int       `json:"pending"`
	Stored    int64     `json:"stored"`
	Duplicate int64     `json:"duplicate"`
	Invalid   int64     `json:"invalid"`
	Failed    int64     `json:"failed"`
	LastFlush time.Time `json:"last_flush"`
}

// Relay batches delivered notifications and appends them to the event log.
// Messages are acknowledged only after their batch is stored.
type Relay struct {
	config  *Config
	store   Appender
	metrics *telemetry.Metrics
	logger  logrus.FieldLogger

	mu      sync.Mutex
	pending []Message
	stats   Stats
}

// New creates a relay
func New(config *Config, store Appender, metrics *telemetry.Metrics, logger logrus.FieldLogger) *Relay {
	if config == nil {
		config = DefaultConfig()
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if logger == nil {
		logger = telemetry.L()
	}
	return &Relay{
		config:  config,
		store:   store,
		metrics: metrics,
		logger:  logger,
		pending: make([]Message, 0, config.BatchSize),
	}
}

// Run consumes from c and flushes on size or on BatchTimeout until ctx is
// done. Pending messages are flushed before Run returns.
func (r *Relay) Run(ctx context.Context, c Consumer) error {
	consumeDone := make(chan error, 1)
	go func() {
		consumeDone <- c.Consume(ctx, func(msgs []*nats.Msg) {
			r.Handle(ctx, FromNATS(msgs))
		})
	}()

	ticker := time.NewTicker(r.config.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-consumeDone
			r.shutdown()
			return nil

		case err := <-consumeDone:
			r.shutdown()
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consumer stopped: %w", err)
			}
			return nil

		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.WithError(err).Warn("Failed to flush pending events")
			}
		}
	}
}

func (r *Relay) shutdown() {
	// ctx is already done, give the final write its own deadline
	ctx, cancel := context.WithTimeout(context.Background(), r.config.FlushTimeout)
	defer cancel()

	if err := r.Flush(ctx); err != nil {
		r.logger.WithError(err).Warn("Failed to flush events on shutdown")
	}
}

// Handle queues msgs, flushing every time a full batch is collected.
func (r *Relay) Handle(ctx context.Context, msgs []Message) {
	for _, m := range msgs {
		r.mu.Lock()
		r.pending = append(r.pending, m)
		var batch []Message
		if len(r.pending) >= r.config.BatchSize {
			batch = r.takeLocked()
		}
		r.mu.Unlock()

		if batch != nil {
			if err := r.process(ctx, batch); err != nil {
				r.logger.WithError(err).Warn("Failed to store event batch")
			}
		}
	}
}

// Flush stores whatever is pending
func (r *Relay) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.takeLocked()
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return r.process(ctx, batch)
}

func (r *Relay) takeLocked() []Message {
	batch := r.pending
	r.pending = make([]Message, 0, r.config.BatchSize)
	return batch
}

// process decodes a batch, writes it with retries and settles every message.
func (r *Relay) process(ctx context.Context, batch []Message) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "relay.flush")
	defer span.End()
	span.SetAttributes(attribute.Int("messaging.batch_size", len(batch)))

	records := make([]eventlog.Record, 0, len(batch))
	valid := make([]Message, 0, len(batch))
	seen := make(map[string]bool, len(batch))
	invalid := 0

	for _, m := range batch {
		n, err := events.UnmarshalNotification(m.Data())
		if err != nil || n.ID == "" || n.Event == "" {
			invalid++
			r.logger.WithField("subject", m.Subject()).Warn("Dropping malformed notification")
			settle(r.logger, m.Term, "term")
			continue
		}
		valid = append(valid, m)
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		records = append(records, eventlog.RecordFromNotification(n, m.Subject(), m.Data()))
	}

	if invalid > 0 {
		r.metrics.RecordMessages("invalid", invalid)
	}
	if len(records) == 0 {
		r.record(func(s *Stats) { s.Invalid += int64(invalid) })
		return nil
	}

	inserted, err := r.appendWithRetry(ctx, records)
	r.metrics.RecordFlush(len(records), time.Since(start))

	if err != nil {
		for _, m := range valid {
			settle(r.logger, m.Nak, "nak")
		}
		r.metrics.RecordMessages("failed", len(valid))
		r.record(func(s *Stats) {
			s.Invalid += int64(invalid)
			s.Failed += int64(len(valid))
		})
		telemetry.RecordError(ctx, err)
		telemetry.SetErrorStatus(ctx, err.Error())
		return err
	}

	for _, m := range valid {
		settle(r.logger, m.Ack, "ack")
	}
	duplicates := len(valid) - inserted
	r.metrics.RecordMessages("stored", inserted)
	if duplicates > 0 {
		r.metrics.RecordMessages("duplicate", duplicates)
	}
	r.record(func(s *Stats) {
		s.Stored += int64(inserted)
		s.Duplicate += int64(duplicates)
		s.Invalid += int64(invalid)
		s.LastFlush = time.Now()
	})
	telemetry.SetOKStatus(ctx)

	r.logger.WithFields(logrus.Fields{
		"batch":     len(batch),
		"stored":    inserted,
		"duplicate": duplicates,
		"invalid":   invalid,
		"duration":  time.Since(start).Milliseconds(),
	}).Debug("Flushed event batch")
	return nil
}

func (r *Relay) appendWithRetry(ctx context.Context, records []eventlog.Record) (int, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.RetryBackoff
	b.Multiplier = r.config.RetryMultiplier
	b.MaxInterval = r.config.MaxRetryBackoff
	b.MaxElapsedTime = 0

	var inserted int
	op := func() error {
		n, err := r.store.Append(ctx, records)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.metrics.RecordFlushRetry()
		r.logger.WithError(err).WithField("retry_in", wait.String()).Warn("Event log write failed, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.config.MaxRetries)), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return 0, fmt.Errorf("failed to append %d events: %w", len(records), err)
	}
	return inserted, nil
}

func (r *Relay) record(update func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	update(&r.stats)
}

// Stats returns a snapshot of the relay counters
func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Pending = len(r.pending)
	return s
}

func settle(logger logrus.FieldLogger, fn func() error, action string) {
	if err := fn(); err != nil {
		logger.WithError(err).WithField("action", action).Warn("Failed to settle message")
	}
}
