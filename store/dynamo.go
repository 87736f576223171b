package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jacentio/nixcore/internal/shard"
)

// DynamoAPI is the subset of the DynamoDB client used by Dynamo.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Dynamo is a Backend over three DynamoDB tables: entity records keyed by
// "id", parent/child relationships sharded by parent, and unique sibling
// names. Deletes set a TTL; descendants are marked either inline or by the
// stream handler.
type Dynamo struct {
	client   DynamoAPI
	config   Config
	registry *Registry
	logger   *zap.SugaredLogger
}

// NewDynamo creates a Dynamo backend using DefaultRegistry.
func NewDynamo(client DynamoAPI, config Config, logger *zap.SugaredLogger) *Dynamo {
	return NewDynamoWithRegistry(client, config, DefaultRegistry(), logger)
}

// NewDynamoWithRegistry creates a Dynamo backend with a custom registry.
func NewDynamoWithRegistry(client DynamoAPI, config Config, registry *Registry, logger *zap.SugaredLogger) *Dynamo {
	config.validate()
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dynamo{
		client:   client,
		config:   config,
		registry: registry,
		logger:   logger,
	}
}

// Registry returns the relationship registry.
func (d *Dynamo) Registry() *Registry {
	return d.registry
}

// Config returns the validated configuration.
func (d *Dynamo) Config() Config {
	return d.config
}

// dynamoItem is the entity table item layout.
type dynamoItem struct {
	ID        string   `dynamodbav:"id"`
	Kind      string   `dynamodbav:"kind"`
	ParentID  string   `dynamodbav:"parent_id,omitempty"`
	Name      string   `dynamodbav:"name,omitempty"`
	Type      string   `dynamodbav:"type,omitempty"`
	Seq       int64    `dynamodbav:"seq"`
	Version   int64    `dynamodbav:"version"`
	CreatedAt string   `dynamodbav:"created_at"`
	UpdatedAt string   `dynamodbav:"updated_at"`
	Body      []byte   `dynamodbav:"body,omitempty"`
	UniquePKs []string `dynamodbav:"_unique_pks,omitempty"`
	TTL       int64    `dynamodbav:"ttl,omitempty"`
}

// ChildRef represents a reference to a child record in the relationship table.
type ChildRef struct {
	// ID is the child's record id.
	ID string

	// Kind is the child's record kind.
	Kind Kind

	// ShardPK is the relationship table partition key (for TTL updates).
	ShardPK string
}

// Tombstone describes a record that has just been marked deleted.
type Tombstone struct {
	ID        string
	ParentID  string
	UniquePKs []string
	TTL       int64
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

// relationshipPK computes the sharded partition key for a relationship record.
func (d *Dynamo) relationshipPK(parentID, childID string) string {
	return shard.RelationshipPK(parentID, childID, d.config.NumShards)
}

// NewID returns a random UUID.
func (d *Dynamo) NewID() string {
	return uuid.NewString()
}

// Create writes the record in one transaction with a parent condition check,
// a unique sibling name constraint and a relationship record.
func (d *Dynamo) Create(ctx context.Context, rec *Record) error {
	var parentKinds []Kind
	if rec.ParentID != "" {
		parentKinds = d.registry.ParentsOf(rec.Kind)
		if len(parentKinds) == 0 {
			return errors.Wrapf(ErrUnknownRelationship, "nothing can own %q", rec.Kind)
		}
	} else if !d.registry.Allows("", rec.Kind) {
		return errors.Wrapf(ErrUnknownRelationship, "%q is not a root kind", rec.Kind)
	}

	items := []types.TransactWriteItem{}
	now := time.Now()
	nowUnix := strconv.FormatInt(now.Unix(), 10)

	// Track item indices for error mapping
	parentCheckIndex := -1
	entityPutIndex := -1

	// 1. Parent must exist, be live and be of an owning kind
	if rec.ParentID != "" {
		parentCheckIndex = len(items)
		items = append(items, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:                aws.String(d.config.EntityTable),
				Key:                      idKey(rec.ParentID),
				ConditionExpression:      aws.String(ParentExistsCondition(parentKinds)),
				ExpressionAttributeNames: mergeExprNames(TTLFilterNames(), map[string]string{"#kind": "kind"}),
				ExpressionAttributeValues: mergeExprValues(
					map[string]types.AttributeValue{":now": &types.AttributeValueMemberN{Value: nowUnix}},
					parentKindValues(parentKinds),
				),
			},
		})
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC().Truncate(time.Second)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	// 2. Unique sibling name; an expired constraint may be overwritten
	var uniquePKs []string
	if rec.ParentID != "" && rec.Name != "" {
		constraintPK := shard.UniqueNamePK(rec.ParentID, string(rec.Kind), rec.Name)
		uniquePKs = append(uniquePKs, constraintPK)
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(d.config.UniqueTable),
				Item: map[string]types.AttributeValue{
					"pk":        &types.AttributeValueMemberS{Value: constraintPK},
					"sk":        &types.AttributeValueMemberS{Value: "CONSTRAINT"},
					"parent_id": &types.AttributeValueMemberS{Value: rec.ParentID},
					"kind":      &types.AttributeValueMemberS{Value: string(rec.Kind)},
					"name":      &types.AttributeValueMemberS{Value: rec.Name},
					"entity_id": &types.AttributeValueMemberS{Value: rec.ID},
				},
				ConditionExpression:       aws.String("attribute_not_exists(pk) OR #ttl <= :now"),
				ExpressionAttributeNames:  TTLFilterNames(),
				ExpressionAttributeValues: map[string]types.AttributeValue{":now": &types.AttributeValueMemberN{Value: nowUnix}},
			},
		})
	}

	// 3. The entity itself
	item, err := attributevalue.MarshalMap(dynamoItem{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		ParentID:  rec.ParentID,
		Name:      rec.Name,
		Type:      rec.Type,
		Seq:       rec.Seq,
		Version:   1,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
		Body:      rec.Body,
		UniquePKs: uniquePKs,
	})
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}
	entityPutIndex = len(items)
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(d.config.EntityTable),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	})

	// 4. Relationship record for child listing and cascades
	if rec.ParentID != "" {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(d.config.RelationshipTable),
				Item: map[string]types.AttributeValue{
					"pk":         &types.AttributeValueMemberS{Value: d.relationshipPK(rec.ParentID, rec.ID)},
					"child_id":   &types.AttributeValueMemberS{Value: rec.ID},
					"parent_id":  &types.AttributeValueMemberS{Value: rec.ParentID},
					"child_kind": &types.AttributeValueMemberS{Value: string(rec.Kind)},
				},
			},
		})
	}

	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err := mapCreateTransactionError(err, parentCheckIndex, entityPutIndex); err != nil {
		return errors.Wrapf(err, "create %s %s", rec.Kind, rec.ID)
	}
	rec.Version = 1
	return nil
}

// Get retrieves a record by id, returning ErrNotFound if deleted or missing.
func (d *Dynamo) Get(ctx context.Context, id string) (*Record, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.config.EntityTable),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", id)
	}
	if result.Item == nil || IsDeleted(result.Item) {
		return nil, errors.Wrapf(ErrNotFound, "get %s", id)
	}
	return unmarshalRecord(result.Item)
}

// Update writes Type, Seq, timestamps and Body with optimistic locking.
func (d *Dynamo) Update(ctx context.Context, rec *Record) error {
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC().Truncate(time.Second)
	}
	body, err := attributevalue.Marshal(rec.Body)
	if err != nil {
		return errors.Wrap(err, "marshal body")
	}

	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.config.EntityTable),
		Key:       idKey(rec.ID),
		UpdateExpression: aws.String("SET #type = :type, #seq = :seq, #body = :body, " +
			"#created_at = :created_at, #updated_at = :updated_at, #version = #version + :one"),
		ConditionExpression: aws.String("attribute_exists(id) AND #version = :expected_version AND attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: map[string]string{
			"#type":       "type",
			"#seq":        "seq",
			"#body":       "body",
			"#created_at": "created_at",
			"#updated_at": "updated_at",
			"#version":    "version",
			"#ttl":        "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type":             &types.AttributeValueMemberS{Value: rec.Type},
			":seq":              &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.Seq, 10)},
			":body":             body,
			":created_at":       &types.AttributeValueMemberS{Value: rec.CreatedAt.UTC().Format(time.RFC3339)},
			":updated_at":       &types.AttributeValueMemberS{Value: updatedAt.UTC().Format(time.RFC3339)},
			":one":              &types.AttributeValueMemberN{Value: "1"},
			":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.Version, 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if !errors.As(err, &condErr) {
			return errors.Wrapf(err, "update %s", rec.ID)
		}
		if _, getErr := d.Get(ctx, rec.ID); getErr != nil {
			return getErr
		}
		return errors.Wrapf(ErrConcurrentModification, "update %s at version %d", rec.ID, rec.Version)
	}
	rec.Version++
	return nil
}

// Children returns the live children of parentID ordered by Seq.
func (d *Dynamo) Children(ctx context.Context, parentID string) ([]*Record, error) {
	refs, err := d.QueryAllChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(refs))
	for _, ref := range refs {
		rec, err := d.Get(ctx, ref.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Delete marks a record deleted by setting its TTL to now and releases its
// name and relationship records. Descendants are marked inline when
// InlineCascade is set; otherwise the stream handler propagates the TTL.
func (d *Dynamo) Delete(ctx context.Context, id string) error {
	ttl := time.Now().Unix()
	tomb, err := d.setTTL(ctx, id, ttl)
	if err != nil {
		return errors.Wrapf(err, "delete %s", id)
	}
	if tomb == nil {
		return nil // already deleted
	}

	d.releaseTombstone(ctx, *tomb)
	if !d.config.InlineCascade {
		return nil
	}

	queue := []Tombstone{*tomb}
	marked := 0
	for len(queue) > 0 {
		next, err := d.PropagateDelete(ctx, queue[0])
		if err != nil {
			return errors.Wrapf(err, "cascade delete %s", queue[0].ID)
		}
		marked += len(next)
		queue = append(queue[1:], next...)
	}
	d.logger.Infow("inline cascade delete completed", "id", id, "descendants", marked)
	return nil
}

// PropagateDelete sets the tombstone's TTL on all of its children and
// releases its relationship and unique name records. It returns tombstones
// for the children that were newly marked.
func (d *Dynamo) PropagateDelete(ctx context.Context, t Tombstone) ([]Tombstone, error) {
	// 1. Query all children (including already-deleted ones - idempotent)
	children, err := d.QueryAllChildren(ctx, t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "query children")
	}

	// 2. Set same TTL on all children
	var marked []Tombstone
	for _, child := range children {
		tomb, err := d.setTTL(ctx, child.ID, t.TTL)
		if err != nil {
			d.logger.Warnw("failed to set TTL on child",
				"child", child.ID,
				"error", err,
			)
			continue
		}
		if tomb != nil {
			marked = append(marked, *tomb)
		}
	}

	// 3. Relationship and unique name records of this entity
	d.releaseTombstone(ctx, t)

	d.logger.Debugw("propagated delete",
		"id", t.ID,
		"children", len(children),
		"marked", len(marked),
	)
	return marked, nil
}

func (d *Dynamo) releaseTombstone(ctx context.Context, t Tombstone) {
	if t.ParentID != "" {
		if err := d.SetRelationshipTTL(ctx, t.ID, t.ParentID, t.TTL); err != nil {
			d.logger.Warnw("failed to set relationship TTL",
				"id", t.ID,
				"parent", t.ParentID,
				"error", err,
			)
		}
	}
	for _, pk := range t.UniquePKs {
		if err := d.SetUniqueConstraintTTL(ctx, pk, t.TTL); err != nil {
			d.logger.Warnw("failed to set unique constraint TTL",
				"pk", pk,
				"error", err,
			)
		}
	}
}

// setTTL marks a live record with ttl. It returns nil when the record is
// missing or already marked.
func (d *Dynamo) setTTL(ctx context.Context, id string, ttl int64) (*Tombstone, error) {
	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.config.EntityTable),
		Key:                 idKey(id),
		UpdateExpression:    aws.String("SET #ttl = :ttl, #version = #version + :one"),
		ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: map[string]string{
			"#ttl":     "ttl",
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})

	// Ignore condition failure - missing or already has TTL
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, errors.Wrap(err, "unmarshal deleted record")
	}
	return &Tombstone{
		ID:        id,
		ParentID:  item.ParentID,
		UniquePKs: item.UniquePKs,
		TTL:       ttl,
	}, nil
}

// QueryAllChildren returns all children of a record (including deleted ones).
// This is used by cascade delete to propagate TTL to all children.
func (d *Dynamo) QueryAllChildren(ctx context.Context, parentID string) ([]ChildRef, error) {
	shardPKs := shard.PartitionKeys(parentID, d.config.NumShards)

	// Fast path for single shard (default)
	if len(shardPKs) == 1 {
		return d.queryChildrenShard(ctx, shardPKs[0])
	}

	// Multi-shard fan-out
	var mu sync.Mutex
	var allChildren []ChildRef
	var wg sync.WaitGroup
	errs := make(chan error, len(shardPKs))

	for _, shardPK := range shardPKs {
		wg.Add(1)
		go func(shardPK string) {
			defer wg.Done()

			shardChildren, err := d.queryChildrenShard(ctx, shardPK)
			if err != nil {
				errs <- errors.Wrapf(err, "shard %s", shardPK)
				return
			}

			mu.Lock()
			allChildren = append(allChildren, shardChildren...)
			mu.Unlock()
		}(shardPK)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return allChildren, nil
}

func (d *Dynamo) queryChildrenShard(ctx context.Context, shardPK string) ([]ChildRef, error) {
	var children []ChildRef

	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.config.RelationshipTable),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: shardPK},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			children = append(children, ChildRef{
				ID:      stringAttr(item, "child_id"),
				Kind:    Kind(stringAttr(item, "child_kind")),
				ShardPK: shardPK,
			})
		}
	}

	return children, nil
}

// SetRelationshipTTL sets TTL on a relationship record.
func (d *Dynamo) SetRelationshipTTL(ctx context.Context, childID, parentID string, ttl int64) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.config.RelationshipTable),
		Key: map[string]types.AttributeValue{
			"pk":       &types.AttributeValueMemberS{Value: d.relationshipPK(parentID, childID)},
			"child_id": &types.AttributeValueMemberS{Value: childID},
		},
		UpdateExpression:         aws.String("SET #ttl = :ttl"),
		ConditionExpression:      aws.String("attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: TTLFilterNames(),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
		},
	})
	return ignoreConditionFailure(err)
}

// SetUniqueConstraintTTL sets TTL on a unique name constraint record.
func (d *Dynamo) SetUniqueConstraintTTL(ctx context.Context, pk string, ttl int64) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.config.UniqueTable),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: "CONSTRAINT"},
		},
		UpdateExpression:         aws.String("SET #ttl = :ttl"),
		ConditionExpression:      aws.String("attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: TTLFilterNames(),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
		},
	})
	return ignoreConditionFailure(err)
}

// ignoreConditionFailure treats "already has TTL" as success.
func ignoreConditionFailure(err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return nil
	}
	return err
}

// mapCreateTransactionError maps DynamoDB transaction errors for Create operations.
// parentCheckIndex is the index of the parent check item (-1 if none).
// entityPutIndex is the index of the entity put item.
func mapCreateTransactionError(err error, parentCheckIndex, entityPutIndex int) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				if i == parentCheckIndex {
					return ErrParentNotFound
				}
				if i == entityPutIndex {
					return ErrAlreadyExists
				}
				// Must be the unique name constraint
				return ErrDuplicateValue
			}
		}
	}

	return err
}

// unmarshalRecord converts an entity table item to a Record.
func unmarshalRecord(raw map[string]types.AttributeValue) (*Record, error) {
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, errors.Wrap(err, "unmarshal record")
	}
	rec := &Record{
		ID:       item.ID,
		Kind:     Kind(item.Kind),
		ParentID: item.ParentID,
		Name:     item.Name,
		Type:     item.Type,
		Seq:      item.Seq,
		Version:  item.Version,
		Body:     item.Body,
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339, item.CreatedAt); err != nil {
		return nil, errors.Wrapf(err, "record %s: created_at", item.ID)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, item.UpdatedAt); err != nil {
		return nil, errors.Wrapf(err, "record %s: updated_at", item.ID)
	}
	return rec, nil
}
