package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/building-energy-toolkit/internal/config"
	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
)

// JobWriter publishes simulation jobs to a Kafka topic.
// It implements parametric.RunManager.
type JobWriter struct {
	writer  *kafkago.Writer
	brokers []string
	logger  *slog.Logger
}

// NewJobWriter creates a Kafka producer for the configured job topic.
func NewJobWriter(cfg *config.Config, logger *slog.Logger) *JobWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaJobTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &JobWriter{writer: w, brokers: cfg.KafkaBrokers, logger: logger}
}

// Name implements parametric.RunManager.
func (w *JobWriter) Name() string { return config.DispatchKafka }

// Dispatch serializes and publishes all jobs in a single WriteMessages call.
func (w *JobWriter) Dispatch(ctx context.Context, jobs []domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(jobs))
	for i := range jobs {
		msg, err := serializeToMessage(jobs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish jobs to %s: %w", w.writer.Topic, err)
	}
	w.logger.Info("jobs published", "topic", w.writer.Topic, "count", len(jobs))
	return nil
}

// CheckReadiness dials the first reachable broker.
func (w *JobWriter) CheckReadiness(ctx context.Context) error {
	if len(w.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var lastErr error
	for _, broker := range w.brokers {
		dialer := &kafkago.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// Close flushes pending messages and closes the producer.
func (w *JobWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Job into a Kafka message keyed by study so
// that all jobs of a study land on the same partition in order.
func serializeToMessage(job domain.Job) (kafkago.Message, error) {
	data, err := domain.SerializeJob(job)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(job.Study),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "job_id", Value: []byte(job.ID)},
			{Key: "variant", Value: []byte(job.Variant)},
			{Key: "created_at", Value: []byte(job.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
