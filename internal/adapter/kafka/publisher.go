package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/alarm-dashboard-service/internal/config"
	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/observability"
	"github.com/couchcryptid/alarm-dashboard-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes every recomputed summary to a Kafka topic.
// It implements pipeline.Renderer.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured summary topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{writer: newWriter(cfg), logger: logger, metrics: metrics}
}

// newWriter flushes every summary on its own. Render runs inside a recompute
// cycle, so a write must not wait for a batch to fill.
func newWriter(cfg *config.Config) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchSize:              1,
		BatchTimeout:           5 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
	}
}

// Render publishes the summary keyed by its selection, so consumers of a
// compacted topic keep the latest summary per month and district.
func (p *Publisher) Render(ctx context.Context, summary pipeline.Summary) error {
	msg, err := serializeToMessage(summary)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish summary %s: %w", summary.CycleID, err)
	}
	p.metrics.SummariesPublished.Inc()
	p.logger.Debug("summary published", "cycle_id", summary.CycleID, "key", string(msg.Key))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// summaryMessage is the published form of a summary. The filtered alarm
// rows are reduced to their count to keep messages small.
type summaryMessage struct {
	CycleID       string           `json:"cycle_id"`
	ComputedAt    time.Time        `json:"computed_at"`
	Selection     domain.Selection `json:"selection"`
	DistrictLabel string           `json:"district_label"`

	AlarmCount     int                    `json:"alarm_count"`
	BrigadeCount   int                    `json:"brigade_count"`
	DistrictCounts []domain.DistrictCount `json:"district_counts"`
	Choropleth     []domain.DistrictCount `json:"choropleth"`
	UnmappedAlarms int                    `json:"unmapped_alarms"`
	ColorDomain    domain.ColorDomain     `json:"color_domain"`

	TopAlarmTypes       []domain.KeyValue `json:"top_alarm_types"`
	MostActiveBrigades  []domain.KeyValue `json:"most_active_brigades"`
	AverageCallDuration []domain.KeyValue `json:"average_call_duration_hours"`
	AlarmsPerDay        []domain.KeyValue `json:"alarms_per_day"`
}

// serializeToMessage marshals a Summary into a Kafka message.
func serializeToMessage(s pipeline.Summary) (kafkago.Message, error) {
	data, err := json.Marshal(summaryMessage{
		CycleID:       s.CycleID,
		ComputedAt:    s.ComputedAt,
		Selection:     s.Selection,
		DistrictLabel: s.DistrictLabel,

		AlarmCount:     len(s.FilteredAlarms),
		BrigadeCount:   s.BrigadeCount,
		DistrictCounts: s.DistrictCounts,
		Choropleth:     s.Choropleth,
		UnmappedAlarms: s.UnmappedAlarms,
		ColorDomain:    s.ColorDomain,

		TopAlarmTypes:       s.TopAlarmTypes,
		MostActiveBrigades:  s.MostActiveBrigades,
		AverageCallDuration: s.AverageCallDuration,
		AlarmsPerDay:        s.AlarmsPerDay,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.Selection.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "cycle_id", Value: []byte(s.CycleID)},
			{Key: "computed_at", Value: []byte(s.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
