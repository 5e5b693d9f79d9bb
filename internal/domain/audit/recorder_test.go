package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handaas/patent-bigdata-mcp/internal/domain/tool"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/eventbus"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/handaas"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/sqlite"
)

func newTestRecorder(t *testing.T) (*Recorder, *sql.DB) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec, err := NewRecorder(db, nil)
	require.NoError(t, err)
	return rec, db
}

func TestNewRecorder_NilDB(t *testing.T) {
	_, err := NewRecorder(nil, nil)
	assert.ErrorIs(t, err, ErrNilDB)
}

func TestRecorder_Record_PersistsEvent(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

	got, err := rec.Record(ctx, tool.CallEvent{
		Tool:      tool.ToolPatentStats,
		ProductID: tool.ProductPatentStats,
		Outcome:   handaas.KindFailed,
		Cause:     "dial tcp: connection refused",
		Duration:  1500 * time.Millisecond,
		At:        at,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)

	list, err := rec.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, got.ID, list[0].ID)
	assert.Equal(t, tool.ToolPatentStats, list[0].Tool)
	assert.Equal(t, tool.ProductPatentStats, list[0].ProductID)
	assert.Equal(t, "failed", list[0].Outcome)
	assert.Equal(t, "dial tcp: connection refused", list[0].Cause)
	assert.Equal(t, 1500*time.Millisecond, list[0].Duration)
	assert.True(t, at.Equal(list[0].CreatedAt))
}

func TestRecorder_List_NewestFirstAndLimit(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{tool.ToolPatentSearch, tool.ToolPatentStats, tool.ToolFuzzySearch} {
		_, err := rec.Record(ctx, tool.CallEvent{
			Tool:    name,
			Outcome: handaas.KindData,
			At:      base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	all, err := rec.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, tool.ToolFuzzySearch, all[0].Tool)
	assert.Equal(t, tool.ToolPatentSearch, all[2].Tool)
	assert.Empty(t, all[0].Cause)

	two, err := rec.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, tool.ToolPatentStats, two[1].Tool)
}

func TestRecorder_StartConsumesBusEvents(t *testing.T) {
	rec, _ := newTestRecorder(t)
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec.Start(ctx, bus)

	svc := tool.NewService(stubCaller{res: handaas.Result{Kind: handaas.KindEmpty}}, bus)
	svc.FuzzySearch(ctx, tool.FuzzySearchParams{MatchKeyword: "华为"})
	bus.Publish(tool.TopicToolCalled, "not a call event")

	require.Eventually(t, func() bool {
		list, err := rec.List(ctx, 10)
		return err == nil && len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)

	list, err := rec.List(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, tool.ToolFuzzySearch, list[0].Tool)
	assert.Equal(t, "empty", list[0].Outcome)
}

func TestRecorder_Run_StopsWhenChannelClosed(t *testing.T) {
	rec, _ := newTestRecorder(t)
	events := make(chan eventbus.Event)
	done := make(chan struct{})

	go func() {
		rec.Run(context.Background(), events)
		close(done)
	}()
	close(events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after channel close")
	}
}

type stubCaller struct{ res handaas.Result }

func (s stubCaller) Call(context.Context, string, map[string]any) handaas.Result { return s.res }

// unsubscribeBus reports every Unsubscribe call on unsubscribed.
type unsubscribeBus struct {
	*eventbus.Bus
	unsubscribed chan string
}

func (b *unsubscribeBus) Unsubscribe(topic string, ch <-chan eventbus.Event) {
	b.Bus.Unsubscribe(topic, ch)
	b.unsubscribed <- topic
}

func TestRecorder_Start_UnsubscribesWhenContextDone(t *testing.T) {
	rec, _ := newTestRecorder(t)
	bus := &unsubscribeBus{Bus: eventbus.New(), unsubscribed: make(chan string, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	rec.Start(ctx, bus)
	cancel()

	select {
	case topic := <-bus.unsubscribed:
		assert.Equal(t, tool.TopicToolCalled, topic)
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not unsubscribe after cancel")
	}
}
