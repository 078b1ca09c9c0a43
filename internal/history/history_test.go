package history

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"channel-reconciler/internal/models"
	"channel-reconciler/pkg/logger"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return log
}

func timedRecord(id string, day time.Time) *models.OrderRecord {
	rec := models.NewOrderRecord()
	rec.SetField("id", models.StringValue(id))
	rec.SetField("time", models.TimeValue(day))
	rec.SetField("amount", models.AmountValue(decimal.NewFromInt(100)))
	rec.ID = id
	return rec
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC)
}

func batch(configID, source, orderDate string) models.UploadedBatch {
	return models.UploadedBatch{
		BatchID:    "b-" + source + "-" + orderDate,
		ConfigID:   configID,
		Source:     source,
		OrderDate:  orderDate,
		FileName:   source + ".csv",
		UploadedAt: time.Now(),
	}
}

func TestMemoryStoreReplaceOnReupload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := []*models.OrderRecord{timedRecord("1", day(10)), timedRecord("2", day(10))}
	if err := store.SaveBatch(ctx, batch("cfg", "bank", "2024-03-10"), first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := []*models.OrderRecord{timedRecord("3", day(10))}
	if err := store.SaveBatch(ctx, batch("cfg", "bank", "2024-03-10"), second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := store.Query(ctx, "cfg", "bank", day(9), day(11))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("re-upload should replace the earlier batch, got %d records", len(got))
	}

	batches, err := store.Batches(ctx, "cfg")
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(batches) != 1 {
		t.Errorf("batches = %d, want 1 after replacement", len(batches))
	}
}

func TestMemoryStoreQueryWindowExclusiveEnd(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	records := []*models.OrderRecord{
		timedRecord("early", day(8)),
		timedRecord("inside", day(9)),
		timedRecord("boundary", day(10)),
	}
	if err := store.SaveBatch(ctx, batch("cfg", "bank", "2024-03-08"), records); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Query(ctx, "cfg", "bank", day(9), day(10))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "inside" {
		t.Errorf("window should be half-open, got %v", got)
	}
}

func TestMemoryStoreIsolatesConfigAndSource(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.SaveBatch(ctx, batch("cfg1", "bank", "2024-03-10"), []*models.OrderRecord{timedRecord("1", day(10))})
	store.SaveBatch(ctx, batch("cfg1", "gateway", "2024-03-10"), []*models.OrderRecord{timedRecord("2", day(10))})
	store.SaveBatch(ctx, batch("cfg2", "bank", "2024-03-10"), []*models.OrderRecord{timedRecord("3", day(10))})

	got, err := store.Query(ctx, "cfg1", "bank", day(9), day(11))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("query leaked across config or source: %v", got)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.SaveBatch(ctx, batch("cfg", "bank", "2024-03-05"), []*models.OrderRecord{timedRecord("old", day(5))})
	store.SaveBatch(ctx, batch("cfg", "bank", "2024-03-10"), []*models.OrderRecord{timedRecord("new", day(10))})

	removed, err := store.Cleanup(ctx, "cfg", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	batches, _ := store.Batches(ctx, "cfg")
	if len(batches) != 1 || batches[0].OrderDate != "2024-03-10" {
		t.Errorf("cleanup kept wrong batches: %v", batches)
	}
}

func TestMemoryStoreQueryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.SaveBatch(ctx, batch("cfg", "bank", "2024-03-10"),
		[]*models.OrderRecord{timedRecord("1", day(10))}); err != nil {
		t.Fatalf("save: %v", err)
	}

	first, err := store.Query(ctx, "cfg", "bank", day(9), day(11))
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	first[0].Historical = true
	first[0].SetField("extra", models.StringValue("x"))

	second, err := store.Query(ctx, "cfg", "bank", day(9), day(11))
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if second[0].Historical {
		t.Error("mutating query results must not change the stored records")
	}
	if _, ok := second[0].Field("extra"); ok {
		t.Error("field added to a query result leaked into the store")
	}
}

func TestMergerWindowAndTagging(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	stored := []*models.OrderRecord{
		timedRecord("h1", day(7)),
		timedRecord("h2", day(9)),
		timedRecord("too-old", day(3)),
	}
	if err := store.SaveBatch(ctx, batch("cfg", "bank", "2024-03-03"), stored); err != nil {
		t.Fatalf("save: %v", err)
	}

	current := []*models.OrderRecord{timedRecord("c1", day(10)), timedRecord("c2", day(12))}
	merger := NewMerger(store, testLogger(t))

	merged, err := merger.Merge(ctx, "cfg", "bank", current, 5)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	// window is [2024-03-05, 2024-03-10): h1 and h2 qualify, too-old does not
	if len(merged) != 4 {
		t.Fatalf("merged = %d records, want 4", len(merged))
	}
	historical := 0
	for _, rec := range merged {
		if rec.Historical {
			historical++
		}
	}
	if historical != 2 {
		t.Errorf("historical tags = %d, want 2", historical)
	}
	for _, rec := range current {
		if rec.Historical {
			t.Error("current records must not be tagged historical")
		}
	}
}

func TestMergerNoTimesSkips(t *testing.T) {
	rec := models.NewOrderRecord()
	rec.SetField("id", models.StringValue("1"))

	merger := NewMerger(NewMemoryStore(), testLogger(t))
	merged, err := merger.Merge(context.Background(), "cfg", "bank", []*models.OrderRecord{rec}, 5)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 1 {
		t.Errorf("batch without times should pass through unchanged, got %d", len(merged))
	}
}
