package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nurpe/amc-schedule/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Upsert(ctx context.Context, scope string, status model.PaymentStatus) error {
	var paidDate *string
	if status.Date != "" {
		paidDate = &status.Date
	}
	updatedAt := status.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Exec(`
		INSERT INTO payment_status (scope, quarter_key, paid, paid_date, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scope, quarter_key) DO UPDATE SET
			paid = excluded.paid,
			paid_date = excluded.paid_date,
			updated_at = excluded.updated_at
	`, scope, status.QuarterKey, status.Paid, paidDate, updatedAt).Error
}

func (r *PaymentRepository) List(ctx context.Context, scope string) (model.PaymentStatuses, error) {
	var rows []struct {
		QuarterKey string
		Paid       bool
		PaidDate   *string
		UpdatedAt  time.Time
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT quarter_key, paid, paid_date, updated_at
		FROM payment_status
		WHERE scope = ?
		ORDER BY quarter_key ASC
	`, scope).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	statuses := make(model.PaymentStatuses, len(rows))
	for _, row := range rows {
		status := model.PaymentStatus{
			QuarterKey: row.QuarterKey,
			Paid:       row.Paid,
			UpdatedAt:  row.UpdatedAt,
		}
		if row.PaidDate != nil {
			status.Date = *row.PaidDate
		}
		statuses[row.QuarterKey] = status
	}
	return statuses, nil
}

func (r *PaymentRepository) Delete(ctx context.Context, scope, quarterKey string) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM payment_status WHERE scope = ? AND quarter_key = ?
	`, scope, quarterKey).Error
}
