package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS order_records (
	id          BIGINT AUTO_INCREMENT PRIMARY KEY,
	config_id   VARCHAR(64)  NOT NULL,
	source      VARCHAR(128) NOT NULL,
	order_date  CHAR(10)     NOT NULL,
	record_time DATETIME     NULL,
	payload     MEDIUMTEXT   NOT NULL,
	INDEX idx_records_window (config_id, source, record_time),
	INDEX idx_records_batch (config_id, source, order_date)
)`

const createBatchesTable = `
CREATE TABLE IF NOT EXISTS upload_batches (
	batch_id    VARCHAR(64)  PRIMARY KEY,
	config_id   VARCHAR(64)  NOT NULL,
	source      VARCHAR(128) NOT NULL,
	order_date  CHAR(10)     NOT NULL,
	file_name   VARCHAR(255) NOT NULL,
	record_rows INT          NOT NULL,
	uploaded_at DATETIME     NOT NULL,
	INDEX idx_batches_config (config_id)
)`

// SQLStore is the MySQL-backed Store
type SQLStore struct {
	db  *sql.DB
	log logger.Logger
}

// OpenSQLStore connects to MySQL with the given DSN and creates the schema
// if it does not exist yet. The DSN must carry parseTime=true so DATETIME
// columns scan into time.Time.
func OpenSQLStore(ctx context.Context, dsn string, log logger.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreUnavailable, "open", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.StoreError(apperrors.CodeStoreUnavailable, "ping", err)
	}
	for _, stmt := range []string{createRecordsTable, createBatchesTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "create schema", err)
		}
	}
	return &SQLStore{db: db, log: log.WithComponent("history")}, nil
}

func (s *SQLStore) SaveBatch(ctx context.Context, batch models.UploadedBatch, records []*models.OrderRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.StoreError(apperrors.CodeStoreQuery, "begin save", err)
	}
	defer tx.Rollback()

	// Replace any earlier upload for the same config, source and date
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM order_records WHERE config_id = ? AND source = ? AND order_date = ?`,
		batch.ConfigID, batch.Source, batch.OrderDate); err != nil {
		return apperrors.StoreError(apperrors.CodeStoreQuery, "replace records", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM upload_batches WHERE config_id = ? AND source = ? AND order_date = ?`,
		batch.ConfigID, batch.Source, batch.OrderDate); err != nil {
		return apperrors.StoreError(apperrors.CodeStoreQuery, "replace batch", err)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO order_records (config_id, source, order_date, record_time, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.StoreError(apperrors.CodeStoreQuery, "prepare insert", err)
	}
	defer insert.Close()

	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return apperrors.StoreError(apperrors.CodeStoreQuery, "encode record", err)
		}
		var recordTime sql.NullTime
		if t, ok := rec.Time(); ok {
			recordTime = sql.NullTime{Time: t.UTC(), Valid: true}
		}
		if _, err := insert.ExecContext(ctx,
			batch.ConfigID, batch.Source, batch.OrderDate, recordTime, payload); err != nil {
			return apperrors.StoreError(apperrors.CodeStoreQuery, "insert record", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO upload_batches (batch_id, config_id, source, order_date, file_name, record_rows, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.BatchID, batch.ConfigID, batch.Source, batch.OrderDate,
		batch.FileName, len(records), batch.UploadedAt.UTC()); err != nil {
		return apperrors.StoreError(apperrors.CodeStoreQuery, "insert batch", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StoreError(apperrors.CodeStoreQuery, "commit save", err)
	}

	s.log.WithFields(logger.Fields{
		"config":  batch.ConfigID,
		"source":  batch.Source,
		"date":    batch.OrderDate,
		"records": len(records),
	}).Info("batch stored")
	return nil
}

func (s *SQLStore) Query(ctx context.Context, configID, source string, from, to time.Time) ([]*models.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM order_records
		 WHERE config_id = ? AND source = ? AND record_time >= ? AND record_time < ?
		 ORDER BY record_time, id`,
		configID, source, from.UTC(), to.UTC())
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "query window", err)
	}
	defer rows.Close()

	var out []*models.OrderRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "scan record", err)
		}
		rec := &models.OrderRecord{}
		if err := json.Unmarshal(payload, rec); err != nil {
			return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "decode record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "iterate records", err)
	}
	return out, nil
}

func (s *SQLStore) Batches(ctx context.Context, configID string) ([]models.UploadedBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, config_id, source, order_date, file_name, record_rows, uploaded_at
		 FROM upload_batches WHERE config_id = ? ORDER BY uploaded_at DESC`,
		configID)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "list batches", err)
	}
	defer rows.Close()

	var out []models.UploadedBatch
	for rows.Next() {
		var b models.UploadedBatch
		if err := rows.Scan(&b.BatchID, &b.ConfigID, &b.Source, &b.OrderDate,
			&b.FileName, &b.RecordRows, &b.UploadedAt); err != nil {
			return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "scan batch", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreQuery, "iterate batches", err)
	}
	return out, nil
}

func (s *SQLStore) Cleanup(ctx context.Context, configID string, before time.Time) (int64, error) {
	cutoff := before.UTC().Format("2006-01-02")
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM order_records WHERE config_id = ? AND order_date < ?`,
		configID, cutoff)
	if err != nil {
		return 0, apperrors.StoreError(apperrors.CodeStoreQuery, "cleanup records", err)
	}
	removed, _ := res.RowsAffected()
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM upload_batches WHERE config_id = ? AND order_date < ?`,
		configID, cutoff); err != nil {
		return removed, apperrors.StoreError(apperrors.CodeStoreQuery, "cleanup batches", err)
	}
	return removed, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
