package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memorySink struct {
	mu     sync.Mutex
	name   string
	events []*Event
	err    error
	closed bool
}

func (m *memorySink) Write(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func (m *memorySink) Name() string {
	if m.name == "" {
		return "memory"
	}
	return m.name
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventRepositoryCreated, Target{Kind: KindRepository, Name: "demo"})
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventRepositoryCreated, event.Type)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "demo", event.Target.Name)

	other := NewEvent(EventRepositoryCreated, Target{})
	assert.NotEqual(t, event.ID, other.ID)
}

func TestLogSink(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))

	event := NewEvent(EventDeploymentCreated, Target{Kind: KindDeployment, Name: "demo", Provider: "vercel"})
	event.Actor = "octocat"
	event.Details = map[string]string{"url": "demo.vercel.app"}
	require.NoError(t, sink.Write(context.Background(), event))

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "deployment.created", fields["event_type"])
	assert.Equal(t, "octocat", fields["actor"])
	assert.Equal(t, "vercel", fields["target_provider"])
	assert.Equal(t, "log", sink.Name())
	assert.NoError(t, sink.Close())
}

func TestWebhookSink(t *testing.T) {
	t.Run("requires url", func(t *testing.T) {
		_, err := NewWebhookSink(WebhookSinkConfig{}, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("posts event json with headers", func(t *testing.T) {
		var (
			received Event
			auth     string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		sink, err := NewWebhookSink(WebhookSinkConfig{
			URL:     srv.URL,
			Headers: map[string]string{"Authorization": "Bearer audit"},
		}, zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = sink.Close() }()

		event := NewEvent(EventProjectDeleted, Target{Kind: KindProject, Name: "prj_1"})
		require.NoError(t, sink.Write(context.Background(), event))
		assert.Equal(t, event.ID, received.ID)
		assert.Equal(t, EventProjectDeleted, received.Type)
		assert.Equal(t, "Bearer audit", auth)
		assert.Equal(t, "webhook", sink.Name())
	})

	t.Run("server error is returned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		sink, err := NewWebhookSink(WebhookSinkConfig{Name: "siem", URL: srv.URL}, zap.NewNop())
		require.NoError(t, err)
		err = sink.Write(context.Background(), NewEvent(EventRepositoryDeleted, Target{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestMultiSink(t *testing.T) {
	good := &memorySink{name: "good"}
	bad := &memorySink{name: "bad", err: errors.New("boom")}
	multi := NewMultiSink(bad, good)

	err := multi.Write(context.Background(), NewEvent(EventRepositoryPushed, Target{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.events, 1, "a failing sink must not block the others")

	require.NoError(t, multi.Close())
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
	assert.Len(t, multi.Sinks(), 2)
}
