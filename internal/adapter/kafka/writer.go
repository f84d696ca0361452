package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rain-alert-service/internal/config"
	"github.com/couchcryptid/rain-alert-service/internal/governor"
)

// Writer publishes cycle decision reports to the reports topic.
// It implements engine.ReportSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured reports topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and produces one cycle report.
func (w *Writer) Publish(ctx context.Context, r *governor.Report) error {
	msg, err := serializeReport(r)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

// Close shuts down the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeReport marshals a cycle report into a Kafka message keyed by cycle
// id, so replays of the same cycle land in one partition.
func serializeReport(r *governor.Report) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cycle report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.CycleID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "decisions", Value: []byte(fmt.Sprintf("%d", len(r.Decisions)))},
			{Key: "finished_at", Value: []byte(r.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
