package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKafkaWriter struct {
	messages []kafka.Message
	err      error
	closed   int
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed++
	return nil
}

func TestNewKafkaSinkValidation(t *testing.T) {
	_, err := NewKafkaSink(KafkaSinkConfig{Topic: "audit"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewKafkaSink(KafkaSinkConfig{Brokers: []string{"localhost:9092"}}, zap.NewNop())
	require.Error(t, err)

	sink, err := NewKafkaSink(KafkaSinkConfig{Brokers: []string{"localhost:9092"}, Topic: "audit", CompressionCodec: "gzip"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "kafka", sink.Name())
	writer, ok := sink.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "audit", writer.Topic)
	assert.Equal(t, kafka.Gzip, writer.Compression)
}

func TestKafkaSinkWrite(t *testing.T) {
	writer := &fakeKafkaWriter{}
	sink := newKafkaSink("stream", writer, zap.NewNop())

	event := NewEvent(EventDeploymentCreated, Target{Kind: KindDeployment, Name: "demo"})
	event.Actor = "octocat"
	require.NoError(t, sink.Write(context.Background(), event))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, event.ID, string(msg.Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, EventDeploymentCreated, decoded.Type)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "deployment.created", headers["event-type"])
	assert.Equal(t, "octocat", headers["actor"])
}

func TestKafkaSinkWriteError(t *testing.T) {
	sink := newKafkaSink("stream", &fakeKafkaWriter{err: errors.New("broker down")}, zap.NewNop())
	err := sink.Write(context.Background(), NewEvent(EventRepositoryCreated, Target{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaSinkClose(t *testing.T) {
	writer := &fakeKafkaWriter{}
	sink := newKafkaSink("stream", writer, zap.NewNop())

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.Equal(t, 1, writer.closed)

	err := sink.Write(context.Background(), NewEvent(EventRepositoryCreated, Target{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}
