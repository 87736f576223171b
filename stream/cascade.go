// Package stream provides DynamoDB Streams handlers for cascade deletes of
// NIX records.
package stream

import (
	"context"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/nixcore/store"
)

// Propagator marks the children of a deleted record.
type Propagator interface {
	PropagateDelete(ctx context.Context, t store.Tombstone) ([]store.Tombstone, error)
}

// Handler processes DynamoDB stream events for cascade deletes.
type Handler struct {
	propagator Propagator
	logger     *zap.SugaredLogger
}

// NewHandler creates a new stream handler. A *store.Dynamo is the usual
// propagator.
func NewHandler(p Propagator, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		propagator: p,
		logger:     logger,
	}
}

// HandleCascadeDelete processes DynamoDB stream events to propagate TTL to children.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleCascadeDelete(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Errorw("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	t, ok := tombstoneFromRecord(record)
	if !ok {
		return nil
	}

	h.logger.Infow("processing cascade delete",
		"id", t.ID,
		"parent", t.ParentID,
		"ttl", t.TTL,
	)

	// Children marked here emit their own MODIFY events
	marked, err := h.propagator.PropagateDelete(ctx, t)
	if err != nil {
		return errors.Wrapf(err, "propagate delete of %s", t.ID)
	}

	h.logger.Infow("cascade delete completed",
		"id", t.ID,
		"childrenMarked", len(marked),
		"uniqueConstraints", len(t.UniquePKs),
	)
	return nil
}

// tombstoneFromRecord reports whether record is a MODIFY event that newly set
// a TTL on an entity record, and the tombstone it describes.
func tombstoneFromRecord(record events.DynamoDBEventRecord) (store.Tombstone, bool) {
	if record.EventName != string(events.DynamoDBOperationTypeModify) {
		return store.Tombstone{}, false
	}

	oldTTL := getNumberAttr(record.Change.OldImage, "ttl")
	newTTL := getNumberAttr(record.Change.NewImage, "ttl")
	if oldTTL != 0 || newTTL == 0 {
		return store.Tombstone{}, false
	}

	id := getStringAttr(record.Change.Keys, "id")
	if id == "" {
		id = getStringAttr(record.Change.NewImage, "id")
	}
	// Relationship and unique name items carry no id
	if id == "" {
		return store.Tombstone{}, false
	}

	return store.Tombstone{
		ID:        id,
		ParentID:  getStringAttr(record.Change.NewImage, "parent_id"),
		UniquePKs: getStringListAttr(record.Change.NewImage, "_unique_pks"),
		TTL:       newTTL,
	}, true
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}

// getStringListAttr extracts a string list attribute from a DynamoDB stream
// image. Both lists and string sets are accepted.
func getStringListAttr(image map[string]events.DynamoDBAttributeValue, key string) []string {
	v, ok := image[key]
	if !ok {
		return nil
	}
	switch v.DataType() {
	case events.DataTypeList:
		var result []string
		for _, item := range v.List() {
			if item.DataType() == events.DataTypeString {
				result = append(result, item.String())
			}
		}
		return result
	case events.DataTypeStringSet:
		return v.StringSet()
	}
	return nil
}
