//go:build e2e

// Package e2e contains end-to-end tests that flush NIX files to real
// DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
// NIX_ENDPOINT and NIX_REGION select the target, e.g. DynamoDB local.
package e2e

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/jacentio/nixcore/nix"
	"github.com/jacentio/nixcore/store"
	"github.com/jacentio/nixcore/stream"
)

// Table names are unique per test run to avoid conflicts.
const tablePrefix = "nixcore-e2e-test"

var (
	testConfig store.Config
	ddbClient  *dynamodb.Client

	// testStore leaves cascades to the stream handler.
	testStore *store.Dynamo
	// inlineStore cascades deletes before returning.
	inlineStore *store.Dynamo
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	ctx := context.Background()

	cfg, err := store.LoadConfig(os.Getenv("NIX_E2E_CONFIG"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	testID := uuid.NewString()[:8]
	cfg.EntityTable = fmt.Sprintf("%s-%s-entities", tablePrefix, testID)
	cfg.RelationshipTable = fmt.Sprintf("%s-%s-relationships", tablePrefix, testID)
	cfg.UniqueTable = fmt.Sprintf("%s-%s-unique", tablePrefix, testID)
	cfg.NumShards = 4
	testConfig = cfg

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Tables:\n")
	fmt.Printf("  - Entities: %s\n", cfg.EntityTable)
	fmt.Printf("  - Relationships: %s\n", cfg.RelationshipTable)
	fmt.Printf("  - Unique: %s\n", cfg.UniqueTable)

	ddbClient, err = store.NewDynamoClient(ctx, cfg)
	if err != nil {
		fmt.Printf("Failed to create DynamoDB client: %v\n", err)
		os.Exit(1)
	}

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	testStore = store.NewDynamo(ddbClient, cfg, nil)
	inline := cfg
	inline.InlineCascade = true
	inlineStore = store.NewDynamo(ddbClient, inline, nil)

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func tableNames() []string {
	return []string{testConfig.EntityTable, testConfig.RelationshipTable, testConfig.UniqueTable}
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(testConfig.EntityTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create entity table: %w", err)
	}

	// Relationship table (pk, child_id)
	_, err = ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(testConfig.RelationshipTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("child_id"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("child_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create relationship table: %w", err)
	}

	// Unique name constraints table (pk, sk)
	_, err = ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(testConfig.UniqueTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create unique table: %w", err)
	}

	for _, tableName := range tableNames() {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", tableName, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	for _, tableName := range tableNames() {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", tableName, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

// --- Helpers ---

// recording builds a file with one block holding a sampled trace and a tag
// on it.
func recording(t *testing.T, backend store.Backend) (*nix.File, *nix.Block) {
	t.Helper()

	f := nix.NewFile(nix.WithBackend(backend))
	b, err := f.CreateBlock("session", "recording")
	if err != nil {
		t.Fatalf("CreateBlock failed: %v", err)
	}
	trace, err := b.CreateDataArray("trace", "signal", nix.DataTypeDouble, nix.NDSize{10})
	if err != nil {
		t.Fatalf("CreateDataArray failed: %v", err)
	}
	values := make([]float64, 10)
	for i := range values {
		values[i] = float64(i)
	}
	if err := trace.SetData(values, nix.NDSize{10}); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	if err := trace.SetUnit("mV"); err != nil {
		t.Fatalf("SetUnit failed: %v", err)
	}
	dim, err := trace.AppendSampledDimension(1)
	if err != nil {
		t.Fatalf("AppendSampledDimension failed: %v", err)
	}
	if err := dim.SetUnit("ms"); err != nil {
		t.Fatalf("SetUnit failed: %v", err)
	}

	tag, err := b.CreateTag("stimulus", "event", []float64{0.002})
	if err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}
	if err := tag.SetExtent([]float64{0.003}); err != nil {
		t.Fatalf("SetExtent failed: %v", err)
	}
	if err := tag.SetUnits([]string{"s"}); err != nil {
		t.Fatalf("SetUnits failed: %v", err)
	}
	if err := tag.AddReference(trace); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}
	return f, b
}

func flush(t *testing.T, f *nix.File) {
	t.Helper()
	if err := f.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func load(t *testing.T, backend store.Backend, id string) *nix.File {
	t.Helper()
	f, err := nix.Load(context.Background(), backend, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return f
}

// modifyEvent is the stream record DynamoDB emits when Delete sets the TTL
// of an entity.
func modifyEvent(id, parentID string, ttl int64) events.DynamoDBEvent {
	return events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{{
			EventID:   uuid.NewString(),
			EventName: string(events.DynamoDBOperationTypeModify),
			Change: events.DynamoDBStreamRecord{
				Keys: map[string]events.DynamoDBAttributeValue{
					"id": events.NewStringAttribute(id),
				},
				OldImage: map[string]events.DynamoDBAttributeValue{
					"id":        events.NewStringAttribute(id),
					"parent_id": events.NewStringAttribute(parentID),
				},
				NewImage: map[string]events.DynamoDBAttributeValue{
					"id":        events.NewStringAttribute(id),
					"parent_id": events.NewStringAttribute(parentID),
					"ttl":       events.NewNumberAttribute(strconv.FormatInt(ttl, 10)),
				},
			},
		}},
	}
}

// --- Round trip ---

func TestFlushLoad_RoundTrip(t *testing.T) {
	f, _ := recording(t, testStore)
	flush(t, f)

	loaded := load(t, testStore, f.ID())
	b := loaded.Block("session")
	if b == nil {
		t.Fatal("expected block session")
	}
	trace := b.DataArray("trace")
	if trace == nil {
		t.Fatal("expected data array trace")
	}
	if got := trace.Unit(); got != "mV" {
		t.Errorf("expected unit mV, got %q", got)
	}
	dim, err := trace.Dimension(1)
	if err != nil {
		t.Fatalf("Dimension failed: %v", err)
	}
	sampled, ok := dim.(*nix.SampledDimension)
	if !ok {
		t.Fatalf("expected sampled dimension, got %T", dim)
	}
	if sampled.Unit() != "ms" || sampled.SamplingInterval() != 1 {
		t.Errorf("unexpected dimension %q %g", sampled.Unit(), sampled.SamplingInterval())
	}

	tag := b.Tag("stimulus")
	if tag == nil {
		t.Fatal("expected tag stimulus")
	}
	if !tag.HasReference(trace.ID()) {
		t.Error("expected tag to reference trace")
	}
	view, err := nix.RetrieveData(tag, 0)
	if err != nil {
		t.Fatalf("RetrieveData failed: %v", err)
	}
	want := []float64{2, 3, 4}
	got, err := view.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestFlush_Update(t *testing.T) {
	f, b := recording(t, testStore)
	flush(t, f)

	if err := b.DataArray("trace").SetUnit("V"); err != nil {
		t.Fatalf("SetUnit failed: %v", err)
	}
	flush(t, f)

	rec, err := testStore.Get(context.Background(), b.DataArray("trace").ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Version != 2 {
		t.Errorf("expected version 2, got %d", rec.Version)
	}
	if got := load(t, testStore, f.ID()).Block("session").DataArray("trace").Unit(); got != "V" {
		t.Errorf("expected unit V, got %q", got)
	}
}

func TestFlush_ConcurrentModification(t *testing.T) {
	f, _ := recording(t, testStore)
	flush(t, f)

	first := load(t, testStore, f.ID())
	second := load(t, testStore, f.ID())

	first.Block("session").DataArray("trace").SetLabel("voltage")
	flush(t, first)

	second.Block("session").DataArray("trace").SetLabel("potential")
	err := second.Flush(context.Background())
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification, got %v", err)
	}
}

// --- Store constraints ---

func TestCreate_ParentNotFound(t *testing.T) {
	ctx := context.Background()

	err := testStore.Create(ctx, &store.Record{
		ID:       testStore.NewID(),
		Kind:     store.KindBlock,
		ParentID: "nonexistent-file-id",
		Name:     "orphan",
	})
	if !errors.Is(err, store.ErrParentNotFound) {
		t.Errorf("expected ErrParentNotFound, got %v", err)
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	ctx := context.Background()
	f, b := recording(t, testStore)
	flush(t, f)

	dup := &store.Record{
		ID:       testStore.NewID(),
		Kind:     store.KindBlock,
		ParentID: f.ID(),
		Name:     b.Name(),
	}
	err := testStore.Create(ctx, dup)
	if !errors.Is(err, store.ErrDuplicateValue) {
		t.Fatalf("expected ErrDuplicateValue, got %v", err)
	}

	// Deleting the block releases its name
	if !f.DeleteBlock("session") {
		t.Fatal("expected block to be deleted")
	}
	flush(t, f)

	if err := testStore.Create(ctx, dup); err != nil {
		t.Errorf("expected name to be reusable, got %v", err)
	}
}

// --- Cascade deletes ---

func TestDelete_StreamCascade(t *testing.T) {
	ctx := context.Background()
	f, b := recording(t, testStore)
	flush(t, f)
	blockID := b.ID()
	traceID := b.DataArray("trace").ID()
	tagID := b.Tag("stimulus").ID()

	if !f.DeleteBlock("session") {
		t.Fatal("expected block to be deleted")
	}
	flush(t, f)

	if _, err := testStore.Get(ctx, blockID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected block to be gone, got %v", err)
	}
	// Without inline cascade the children stay until the stream handler runs
	if _, err := testStore.Get(ctx, traceID); err != nil {
		t.Fatalf("expected trace before propagation, got %v", err)
	}

	handler := stream.NewHandler(testStore, nil)
	if err := handler.HandleCascadeDelete(ctx, modifyEvent(blockID, f.ID(), time.Now().Unix())); err != nil {
		t.Fatalf("HandleCascadeDelete failed: %v", err)
	}

	for _, id := range []string{traceID, tagID} {
		if _, err := testStore.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected %s to be gone, got %v", id, err)
		}
	}

	if got := load(t, testStore, f.ID()).BlockCount(); got != 0 {
		t.Errorf("expected no blocks, got %d", got)
	}
}

func TestDelete_InlineCascade(t *testing.T) {
	ctx := context.Background()
	f, b := recording(t, inlineStore)
	flush(t, f)
	traceID := b.DataArray("trace").ID()

	if !f.DeleteBlock("session") {
		t.Fatal("expected block to be deleted")
	}
	flush(t, f)

	if _, err := inlineStore.Get(ctx, traceID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected trace to be gone, got %v", err)
	}
	children, err := inlineStore.Children(ctx, f.ID())
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("expected no children, got %d", len(children))
	}
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	f, _ := recording(t, testStore)
	flush(t, f)

	if err := testStore.Delete(ctx, f.ID()); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := testStore.Delete(ctx, f.ID()); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
	if _, err := nix.Load(ctx, testStore, f.ID()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
