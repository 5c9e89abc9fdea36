package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dandantas/pulse/internal/model"
)

// Check sources
const (
	SourceScheduled = "scheduled"
	SourceManual    = "manual"
)

// ResultEvent is published once for every persisted check outcome
type ResultEvent struct {
	MonitorID       int64             `json:"monitor_id"`
	Label           string            `json:"label"`
	Type            model.MonitorType `json:"type"`
	Source          string            `json:"source"`
	Status          model.CheckStatus `json:"status"`
	ResponseTimeMs  int64             `json:"response_time_ms"`
	Error           string            `json:"error,omitempty"`
	HTTPCode        *int              `json:"http_code,omitempty"`
	MissingKeywords []string          `json:"missing_keywords,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CorrelationID   string            `json:"correlation_id,omitempty"`
}

// NewResultEvent builds the event for a monitor's check result
func NewResultEvent(monitor *model.Monitor, result model.CheckResult, source, correlationID string) ResultEvent {
	return ResultEvent{
		MonitorID:       monitor.ID,
		Label:           monitor.Label,
		Type:            monitor.Type,
		Source:          source,
		Status:          result.Status,
		ResponseTimeMs:  result.ResponseTimeMs,
		Error:           result.Error,
		HTTPCode:        result.HTTPCode,
		MissingKeywords: result.MissingKeywords,
		StartedAt:       result.StartedAt.UTC(),
		CorrelationID:   correlationID,
	}
}

// Publisher delivers result events to a downstream stream
type Publisher interface {
	Publish(ctx context.Context, event ResultEvent) error
	Close() error
}

// Producer publishes result events to a Kafka topic keyed by monitor id
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates an asynchronous producer for topic
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					slog.Warn("Failed to deliver result events", "count", len(messages), "error", err)
				}
			},
		},
	}
}

// Publish queues one event; delivery errors are logged by the writer
func (p *Producer) Publish(ctx context.Context, event ResultEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.MonitorID, 10)),
		Value: payload,
		Time:  event.StartedAt,
	})
}

// Close flushes pending events
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Discard drops every event. Used when no brokers are configured.
type Discard struct{}

func (Discard) Publish(context.Context, ResultEvent) error { return nil }

func (Discard) Close() error { return nil }
