// Package reconciler orchestrates one reconciliation run: configuration
// validation, the two source pipelines, historical merging, and the final
// identifier match.
package reconciler

import (
	"context"
	"time"

	"channel-reconciler/internal/history"
	"channel-reconciler/internal/matcher"
	"channel-reconciler/internal/models"
	"channel-reconciler/internal/normalize"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

// Engine runs reconciliations for channel configurations. The historical
// store is optional; configs that enable historical matching fail when no
// store is wired.
type Engine struct {
	store history.Store
	log   logger.Logger
}

// New builds an engine. Pass a nil store when no history backend is
// configured.
func New(store history.Store, log logger.Logger) *Engine {
	return &Engine{store: store, log: log.WithComponent("engine")}
}

// Input is one run's raw material: the immutable config snapshot and the
// raw rows of both sources.
type Input struct {
	Config      *models.ChannelConfig
	SourceARows [][]string
	SourceBRows [][]string
}

// Output carries the result plus everything recovered along the way
type Output struct {
	Result *models.ReconciliationResult

	// RecordsA and RecordsB are the current batch's canonical records
	// before any historical merge, ready for persistence.
	RecordsA []*models.OrderRecord
	RecordsB []*models.OrderRecord

	DiagnosticsA *normalize.Diagnostics
	DiagnosticsB *normalize.Diagnostics

	UsedHistoricalSourceA bool
	UsedHistoricalSourceB bool
}

// snapshot copies the caller's config so defaults resolved for one run
// never leak back into the stored document.
func snapshot(cfg *models.ChannelConfig) *models.ChannelConfig {
	c := *cfg
	return &c
}

// sideResult crosses the pipeline goroutine boundary
type sideResult struct {
	records []*models.OrderRecord
	diags   *normalize.Diagnostics
	err     error
}

// Reconcile validates the configuration, normalizes both sources in
// parallel, merges history where enabled, and matches. Cancellation is
// honored between stages; a canceled run returns no partial result.
func (e *Engine) Reconcile(ctx context.Context, input Input) (*Output, error) {
	cfg := snapshot(input.Config)
	cfg.Match.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Match.UsesHistory() && e.store == nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreUnavailable,
			"historical matching", nil)
	}

	start := time.Now()
	e.log.WithFields(logger.Fields{
		"config": cfg.ID,
		"rows_a": len(input.SourceARows),
		"rows_b": len(input.SourceBRows),
	}).Info("reconciliation started")

	chA := e.runPipeline(cfg.SourceAName, &cfg.SourceA, cfg.Match.SourceAStatusMapping, cfg.Match.SourceAIDField, input.SourceARows)
	chB := e.runPipeline(cfg.SourceBName, &cfg.SourceB, cfg.Match.SourceBStatusMapping, cfg.Match.SourceBIDField, input.SourceBRows)

	sideA, err := await(ctx, chA)
	if err != nil {
		return nil, err
	}
	sideB, err := await(ctx, chB)
	if err != nil {
		return nil, err
	}

	out := &Output{
		RecordsA:     sideA.records,
		RecordsB:     sideB.records,
		DiagnosticsA: sideA.diags,
		DiagnosticsB: sideB.diags,
	}

	recordsA, recordsB := sideA.records, sideB.records
	if cfg.Match.UseHistoricalSourceA {
		merger := history.NewMerger(e.store, e.log)
		recordsA, err = merger.Merge(ctx, cfg.ID, cfg.SourceAName, recordsA, cfg.Match.HistoryDays)
		if err != nil {
			return nil, err
		}
		out.UsedHistoricalSourceA = true
	}
	if cfg.Match.UseHistoricalSourceB {
		merger := history.NewMerger(e.store, e.log)
		recordsB, err = merger.Merge(ctx, cfg.ID, cfg.SourceBName, recordsB, cfg.Match.HistoryDays)
		if err != nil {
			return nil, err
		}
		out.UsedHistoricalSourceB = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := matcher.New(&cfg.Match, e.log)
	if err != nil {
		return nil, err
	}
	out.Result = m.Match(recordsA, recordsB)

	if err := out.Result.Stats.Verify(); err != nil {
		return nil, err
	}

	e.log.WithFields(logger.Fields{
		"config":   cfg.ID,
		"matched":  out.Result.Stats.MatchedCount,
		"duration": time.Since(start).String(),
	}).Info("reconciliation finished")

	return out, nil
}

// runPipeline normalizes one side on its own goroutine. Pipelines share no
// state; each returns an isolated record set.
func (e *Engine) runPipeline(sourceName string, source *models.SourceConfig, statusMappings []models.StatusMapping, idField string, rows [][]string) <-chan sideResult {
	ch := make(chan sideResult, 1)
	go func() {
		pipeline := normalize.NewPipeline(sourceName, source, statusMappings, idField, e.log)
		records, diags, err := pipeline.Run(rows)
		ch <- sideResult{records: records, diags: diags, err: err}
	}()
	return ch
}

func await(ctx context.Context, ch <-chan sideResult) (sideResult, error) {
	select {
	case <-ctx.Done():
		return sideResult{}, ctx.Err()
	case res := <-ch:
		return res, res.err
	}
}

// SaveBatches persists both sides' canonical records so later runs can
// merge them as history. Records are grouped by their record date; each
// day becomes one stored batch and replaces earlier uploads of that day.
func (e *Engine) SaveBatches(ctx context.Context, cfg *models.ChannelConfig, sourceName, fileName string, records []*models.OrderRecord, newBatchID func() string) error {
	if e.store == nil {
		return apperrors.StoreError(apperrors.CodeStoreUnavailable, "save batches", nil)
	}

	byDate := make(map[string][]*models.OrderRecord)
	for _, rec := range records {
		t, ok := rec.Time()
		if !ok {
			continue
		}
		byDate[t.UTC().Format("2006-01-02")] = append(byDate[t.UTC().Format("2006-01-02")], rec)
	}

	for date, recs := range byDate {
		batch := models.UploadedBatch{
			BatchID:    newBatchID(),
			ConfigID:   cfg.ID,
			Source:     sourceName,
			OrderDate:  date,
			FileName:   fileName,
			RecordRows: len(recs),
			UploadedAt: time.Now().UTC(),
		}
		if err := e.store.SaveBatch(ctx, batch, recs); err != nil {
			return err
		}
	}
	return nil
}

// DoubleCheck re-runs a completed reconciliation purely from stored
// history, widening the task's date range by extraDays on both ends.
func (e *Engine) DoubleCheck(ctx context.Context, channelConfig *models.ChannelConfig, rangeStart, rangeEnd time.Time, extraDays int) (*Output, error) {
	cfg := snapshot(channelConfig)
	cfg.Match.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if e.store == nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreUnavailable, "double check", nil)
	}
	if extraDays < 0 {
		return nil, apperrors.ConfigError(apperrors.CodeInvalidHistoryWindow,
			"extraDays", extraDays, nil)
	}

	from := rangeStart.AddDate(0, 0, -extraDays)
	to := rangeEnd.AddDate(0, 0, extraDays+1)

	recordsA, err := e.store.Query(ctx, cfg.ID, cfg.SourceAName, from, to)
	if err != nil {
		return nil, err
	}
	recordsB, err := e.store.Query(ctx, cfg.ID, cfg.SourceBName, from, to)
	if err != nil {
		return nil, err
	}

	m, err := matcher.New(&cfg.Match, e.log)
	if err != nil {
		return nil, err
	}
	out := &Output{
		Result:       m.Match(recordsA, recordsB),
		DiagnosticsA: &normalize.Diagnostics{},
		DiagnosticsB: &normalize.Diagnostics{},
	}
	if err := out.Result.Stats.Verify(); err != nil {
		return nil, err
	}
	return out, nil
}
