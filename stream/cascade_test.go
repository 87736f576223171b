package stream_test

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jacentio/nixcore/store"
	"github.com/jacentio/nixcore/stream"
)

type fakePropagator struct {
	calls []store.Tombstone
	err   error
}

func (f *fakePropagator) PropagateDelete(_ context.Context, t store.Tombstone) ([]store.Tombstone, error) {
	f.calls = append(f.calls, t)
	if f.err != nil {
		return nil, f.err
	}
	return []store.Tombstone{{ID: t.ID + "-child", ParentID: t.ID, TTL: t.TTL}}, nil
}

func deleteEvent(id, parentID string) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventID:   "evt-" + id,
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			Keys: map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute(id)},
			OldImage: map[string]events.DynamoDBAttributeValue{
				"id":      events.NewStringAttribute(id),
				"version": events.NewNumberAttribute("2"),
			},
			NewImage: map[string]events.DynamoDBAttributeValue{
				"id":        events.NewStringAttribute(id),
				"parent_id": events.NewStringAttribute(parentID),
				"version":   events.NewNumberAttribute("3"),
				"ttl":       events.NewNumberAttribute("1704067200"),
			},
		},
	}
}

func TestNewHandler(t *testing.T) {
	// Test with nil propagator and logger (should not panic)
	h := stream.NewHandler(nil, nil)
	if h == nil {
		t.Fatal("expected non-nil Handler")
	}
}

func TestHandler_HandleCascadeDelete_EmptyEvent(t *testing.T) {
	p := &fakePropagator{}
	h := stream.NewHandler(p, nil)

	err := h.HandleCascadeDelete(context.Background(), events.DynamoDBEvent{})
	require.NoError(t, err)
	assert.Empty(t, p.calls)
}

func TestHandler_HandleCascadeDelete_SkipsIrrelevantEvents(t *testing.T) {
	p := &fakePropagator{}
	h := stream.NewHandler(p, nil)

	existing := deleteEvent("a", "p")
	existing.Change.OldImage["ttl"] = events.NewNumberAttribute("1000")

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		{EventName: "INSERT", Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("x")},
		}},
		{EventName: "REMOVE", Change: events.DynamoDBStreamRecord{
			OldImage: map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("x")},
		}},
		{EventName: "MODIFY", Change: events.DynamoDBStreamRecord{
			OldImage: map[string]events.DynamoDBAttributeValue{"name": events.NewStringAttribute("old")},
			NewImage: map[string]events.DynamoDBAttributeValue{"name": events.NewStringAttribute("new")},
		}},
		existing,
	}}

	require.NoError(t, h.HandleCascadeDelete(context.Background(), event))
	assert.Empty(t, p.calls)
}

func TestHandler_HandleCascadeDelete_Propagates(t *testing.T) {
	p := &fakePropagator{}
	core, logs := observer.New(zap.InfoLevel)
	h := stream.NewHandler(p, zap.New(core).Sugar())

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		deleteEvent("block-1", "file-1"),
		deleteEvent("source-1", "block-1"),
	}}

	require.NoError(t, h.HandleCascadeDelete(context.Background(), event))
	require.Len(t, p.calls, 2)
	assert.Equal(t, store.Tombstone{ID: "block-1", ParentID: "file-1", TTL: 1704067200}, p.calls[0])
	assert.Equal(t, "source-1", p.calls[1].ID)

	completed := logs.FilterMessage("cascade delete completed").All()
	require.Len(t, completed, 2)
	assert.Equal(t, int64(1), completed[0].ContextMap()["childrenMarked"])
}

func TestHandler_HandleCascadeDelete_StopsOnError(t *testing.T) {
	p := &fakePropagator{err: errors.New("throttled")}
	core, logs := observer.New(zap.ErrorLevel)
	h := stream.NewHandler(p, zap.New(core).Sugar())

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		deleteEvent("block-1", "file-1"),
		deleteEvent("block-2", "file-1"),
	}}

	err := h.HandleCascadeDelete(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Len(t, p.calls, 1, "the batch is retried from the failed record")
	assert.Equal(t, 1, logs.FilterMessage("failed to process record").Len())
}

func TestHandler_WithDynamoPropagator(t *testing.T) {
	// *store.Dynamo satisfies Propagator
	var _ stream.Propagator = (*store.Dynamo)(nil)
}
