package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/amc-schedule/internal/model"
)

type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Get(ctx context.Context, fingerprint string) (*model.BatchRecord, error) {
	var row struct {
		Fingerprint string
		Kind        string
		BatchID     string
		Payload     string
		CreatedAt   time.Time
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT fingerprint, kind, batch_id, payload, created_at
		FROM schedule_results
		WHERE fingerprint = ?
	`, fingerprint).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Fingerprint == "" {
		return nil, gorm.ErrRecordNotFound
	}

	record := &model.BatchRecord{}
	if err := json.Unmarshal([]byte(row.Payload), record); err != nil {
		return nil, fmt.Errorf("decode stored batch %s: %w", fingerprint, err)
	}
	record.Fingerprint = row.Fingerprint
	record.Kind = model.ScheduleKind(row.Kind)
	record.BatchID = row.BatchID
	record.CreatedAt = row.CreatedAt
	return record, nil
}

// Save stores the record, replacing an earlier one with the same fingerprint.
func (r *ResultRepository) Save(ctx context.Context, record *model.BatchRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Exec(`
		INSERT INTO schedule_results (
			fingerprint, kind, batch_id, product_count, successful, errors, total_value, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			kind = excluded.kind,
			batch_id = excluded.batch_id,
			product_count = excluded.product_count,
			successful = excluded.successful,
			errors = excluded.errors,
			total_value = excluded.total_value,
			payload = excluded.payload,
			created_at = excluded.created_at
	`,
		record.Fingerprint,
		string(record.Kind),
		record.BatchID,
		record.Summary.Processed,
		record.Summary.Successful,
		record.Summary.Errors,
		record.Summary.TotalValue,
		string(payload),
		createdAt,
	).Error
}

func (r *ResultRepository) Delete(ctx context.Context, fingerprint string) error {
	return r.db.WithContext(ctx).Exec(`DELETE FROM schedule_results WHERE fingerprint = ?`, fingerprint).Error
}
