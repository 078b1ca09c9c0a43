package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"channel-reconciler/internal/models"
	"channel-reconciler/pkg/logger"
)

func testExporter(t *testing.T) *Exporter {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	cfg := &models.ChannelConfig{
		SourceAName: "bank",
		SourceBName: "gateway",
		Match: models.MatchConfig{
			SourceAIDField: "id",
			SourceBIDField: "id",
		},
	}
	return New(cfg, log)
}

func exportRecord(id, amount string) *models.OrderRecord {
	rec := models.NewOrderRecord()
	rec.SetField("note", models.StringValue("memo"))
	rec.SetField("amount", models.AmountValue(decimal.RequireFromString(amount)))
	rec.SetField("time", models.TimeValue(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)))
	rec.SetField("id", models.StringValue(id))
	rec.ID = id
	rec.Status = "COMPLETED"
	return rec
}

func sampleResult() *models.ReconciliationResult {
	a1, b1 := exportRecord("1001", "100.00"), exportRecord("1001", "100.00")
	a2, b2 := exportRecord("1002", "50.00"), exportRecord("1002", "49.50")
	return &models.ReconciliationResult{
		Matched:    []models.MatchedPair{{A: a1, B: b1}},
		DiffAmount: []models.MatchedPair{{A: a2, B: b2}},
		OnlyInA:    []*models.OrderRecord{exportRecord("1003", "10.00")},
		OnlyInB:    []*models.OrderRecord{exportRecord("1004", "20.00")},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	return rows
}

func TestPrioritizeColumnOrder(t *testing.T) {
	cols := prioritize([]*models.OrderRecord{exportRecord("1", "5")}, "id")
	want := []string{"id", "time", "amount", "note"}
	if len(cols) != len(want) {
		t.Fatalf("columns = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column[%d] = %q, want %q", i, cols[i], want[i])
		}
	}
}

func TestWriteCSVSingleCategory(t *testing.T) {
	dir := t.TempDir()
	paths, err := testExporter(t).WriteCSV(dir, "run1", CategoryOnlyInA, sampleResult())
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want one file", paths)
	}

	rows := readCSV(t, paths[0])
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one record", len(rows))
	}
	if rows[0][0] != "id" || rows[1][0] != "1003" {
		t.Errorf("identifier column first: header %v row %v", rows[0], rows[1])
	}
	if rows[1][1] != "2024-03-15 09:00:00" {
		t.Errorf("time boundary form = %q", rows[1][1])
	}
}

func TestWriteCSVAllWritesOneFilePerBucket(t *testing.T) {
	dir := t.TempDir()
	paths, err := testExporter(t).WriteCSV(dir, "run1", CategoryAll, sampleResult())
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("paths = %v, want four files", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing export file %s", p)
		}
	}
}

func TestWriteCSVDiffColumn(t *testing.T) {
	dir := t.TempDir()
	paths, err := testExporter(t).WriteCSV(dir, "run1", CategoryDiffAmount, sampleResult())
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows := readCSV(t, paths[0])
	header := rows[0]
	if header[len(header)-1] != amountDiffColumn {
		t.Fatalf("last header = %q, want %q", header[len(header)-1], amountDiffColumn)
	}
	if got := rows[1][len(header)-1]; got != "0.5" {
		t.Errorf("amount diff = %q, want 0.5", got)
	}
	if !strings.Contains(header[0], "(bank)") {
		t.Errorf("pair headers should name the source, got %q", header[0])
	}
}

func TestWriteCSVRejectsUnknownCategory(t *testing.T) {
	_, err := testExporter(t).WriteCSV(t.TempDir(), "run1", Category("everything"), sampleResult())
	if err == nil {
		t.Fatal("expected unknown category to be rejected")
	}
}

func TestWriteExcelSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")
	if err := testExporter(t).WriteExcel(path, sampleResult()); err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 4 {
		t.Fatalf("sheets = %v, want four", sheets)
	}

	rows, err := f.GetRows("Only In Source B")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "1004" {
		t.Errorf("only-in-B sheet rows = %v", rows)
	}
}
