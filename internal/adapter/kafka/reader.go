// Package kafka adapts the feature stream and report sink to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rain-alert-service/internal/config"
	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

// Reader consumes area feature records from the features topic.
// It implements engine.FeatureSource.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer-group reader for the features topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaFeaturesTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafkago.LastOffset,
	})
	return &Reader{reader: r, flushInterval: cfg.FetchFlushInterval, logger: logger}
}

// FetchBatch drains up to batchSize feature records, returning whatever
// arrived within the flush interval. An empty batch is a normal quiet-stream
// outcome, not an error. Messages are committed as they are fetched; a
// missed record is recovered by the next feature publication.
func (r *Reader) FetchBatch(ctx context.Context, batchSize int) ([]domain.AreaFeatures, error) {
	deadline, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	var batch []domain.AreaFeatures
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(deadline)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(deadline.Err(), context.DeadlineExceeded) {
				return batch, nil
			}
			if ctx.Err() != nil {
				return batch, nil
			}
			return batch, err
		}

		var f domain.AreaFeatures
		if err := json.Unmarshal(msg.Value, &f); err != nil {
			r.logger.Warn("malformed feature record, skipping",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
				"error", err)
		} else if f.AreaID == "" {
			r.logger.Warn("feature record without area id, skipping",
				"topic", msg.Topic, "offset", msg.Offset)
		} else {
			batch = append(batch, f)
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			r.logger.Warn("commit offset failed", "error", err,
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		}
	}
	return batch, nil
}

// Close shuts down the consumer group member.
func (r *Reader) Close() error {
	return r.reader.Close()
}
