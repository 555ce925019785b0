package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/deployer-cli/deployer/pkg/metrics"
	"go.uber.org/zap"
)

// Sink types accepted in configuration.
const (
	SinkTypeLog     = "log"
	SinkTypeWebhook = "webhook"
	SinkTypeKafka   = "kafka"
)

// SinkConfig is the configuration form of a single sink.
type SinkConfig struct {
	Type    string            `yaml:"type"`
	Name    string            `yaml:"name,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Brokers []string          `yaml:"brokers,omitempty"`
	Topic   string            `yaml:"topic,omitempty"`
	Codec   string            `yaml:"compression,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
}

// BuildSink turns sink configuration into a Sink. It returns nil when no sinks
// are configured.
func BuildSink(cfgs []SinkConfig, logger *zap.Logger) (Sink, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	sinks := make([]Sink, 0, len(cfgs))
	for i, cfg := range cfgs {
		var (
			sink Sink
			err  error
		)
		switch cfg.Type {
		case SinkTypeLog:
			sink = NewLogSink(logger)
		case SinkTypeWebhook:
			sink, err = NewWebhookSink(WebhookSinkConfig{
				Name:    cfg.Name,
				URL:     cfg.URL,
				Headers: cfg.Headers,
				Timeout: cfg.Timeout,
			}, logger)
		case SinkTypeKafka:
			sink, err = NewKafkaSink(KafkaSinkConfig{
				Name:             cfg.Name,
				Brokers:          cfg.Brokers,
				Topic:            cfg.Topic,
				CompressionCodec: cfg.Codec,
				WriteTimeout:     cfg.Timeout,
			}, logger)
		default:
			err = fmt.Errorf("unknown sink type %q", cfg.Type)
		}
		if err != nil {
			_ = NewMultiSink(sinks...).Close()
			return nil, fmt.Errorf("audit sink %d: %w", i, err)
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}

// Recorder stamps and writes events. A nil *Recorder or one without a sink
// discards everything, so callers never need to check whether auditing is on.
type Recorder struct {
	sink   Sink
	actor  string
	source string
	logger *zap.Logger
}

// NewRecorder creates a Recorder writing to sink.
func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, logger: logger, source: "cli"}
}

// WithActor returns a copy of the recorder attributing events to actor.
func (r *Recorder) WithActor(actor string) *Recorder {
	if r == nil {
		return nil
	}
	cp := *r
	cp.actor = actor
	return &cp
}

// WithSource returns a copy of the recorder tagging events with source
// ("cli" or "dashboard").
func (r *Recorder) WithSource(source string) *Recorder {
	if r == nil {
		return nil
	}
	cp := *r
	cp.source = source
	return &cp
}

// Record writes one event. Sink failures are logged and counted, never
// returned: auditing must not fail the operation it describes.
func (r *Recorder) Record(ctx context.Context, eventType EventType, target Target, details map[string]string) {
	if r == nil || r.sink == nil {
		return
	}
	event := NewEvent(eventType, target)
	event.Actor = r.actor
	event.Source = r.source
	event.Details = details

	if err := r.sink.Write(ctx, event); err != nil {
		metrics.AuditSinkErrors.WithLabelValues(r.sink.Name()).Inc()
		r.logger.Warn("audit event not delivered",
			zap.String("event_type", string(eventType)),
			zap.String("sink", r.sink.Name()),
			zap.Error(err))
		return
	}
	metrics.AuditEventsWritten.WithLabelValues(r.sink.Name()).Inc()
}

// Close closes the underlying sink.
func (r *Recorder) Close() error {
	if r == nil || r.sink == nil {
		return nil
	}
	return r.sink.Close()
}
