package configstore

import (
	"testing"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	store, err := New(t.TempDir(), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func sampleConfig(name string) *models.ChannelConfig {
	source := models.SourceConfig{
		Header: 1,
		Mappings: []models.ColumnMapping{
			{ID: "m1", SourceColumn: "ID", FieldType: models.FieldOrderString, FieldName: "id", RuleType: models.RuleStringNormal},
		},
	}
	return &models.ChannelConfig{
		Name:    name,
		SourceA: source,
		SourceB: source,
		Match: models.MatchConfig{
			SourceAIDField: "id",
			SourceBIDField: "id",
		},
	}
}

func TestSaveAssignsIDAndTimestamps(t *testing.T) {
	store := testStore(t)
	cfg := sampleConfig("channel one")

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cfg.ID == "" {
		t.Fatal("save should assign an id")
	}
	if cfg.CreatedAt == "" || cfg.UpdatedAt == "" {
		t.Error("save should stamp createdAt and updatedAt")
	}

	loaded, err := store.Load(cfg.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "channel one" {
		t.Errorf("loaded name = %q", loaded.Name)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	store := testStore(t)
	cfg := sampleConfig("broken")
	cfg.Match.SourceAIDField = ""

	if err := store.Save(cfg); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
}

func TestSaveAppliesHistoryDefault(t *testing.T) {
	store := testStore(t)
	cfg := sampleConfig("with history")
	cfg.Match.UseHistoricalSourceA = true

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(cfg.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Match.HistoryDays != models.DefaultHistoryDays {
		t.Errorf("historyDays = %d, want default %d", loaded.Match.HistoryDays, models.DefaultHistoryDays)
	}
}

func TestListSortedByName(t *testing.T) {
	store := testStore(t)
	for _, name := range []string{"zulu", "alpha", "mike"} {
		if err := store.Save(sampleConfig(name)); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
	}

	configs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(configs) != 3 {
		t.Fatalf("configs = %d, want 3", len(configs))
	}
	if configs[0].Name != "alpha" || configs[2].Name != "zulu" {
		t.Errorf("list not sorted by name: %v", []string{configs[0].Name, configs[1].Name, configs[2].Name})
	}
}

func TestDelete(t *testing.T) {
	store := testStore(t)
	cfg := sampleConfig("doomed")
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Delete(cfg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(cfg.ID); !apperrors.HasCode(err, apperrors.CodeFileNotFound) {
		t.Errorf("expected CodeFileNotFound after delete, got %v", err)
	}
	if err := store.Delete(cfg.ID); !apperrors.HasCode(err, apperrors.CodeFileNotFound) {
		t.Errorf("double delete should report not found, got %v", err)
	}
}
