package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/amc-schedule/internal/calendar"
	"github.com/nurpe/amc-schedule/internal/model"
)

type PaymentStore interface {
	Upsert(ctx context.Context, scope string, status model.PaymentStatus) error
	List(ctx context.Context, scope string) (model.PaymentStatuses, error)
}

// PaymentService records which quarters of a schedule have been paid. A scope
// groups the statuses of one schedule, e.g. a site or a contract number.
type PaymentService struct {
	store PaymentStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewPaymentService(store PaymentStore, log zerolog.Logger, now func() time.Time) *PaymentService {
	if now == nil {
		now = time.Now
	}
	return &PaymentService{store: store, log: log.With().Str("component", "payments").Logger(), now: now}
}

// SetStatus marks a quarter paid or unpaid. A paid quarter without a date is
// stamped with today's date; an unpaid one never keeps a date.
func (s *PaymentService) SetStatus(ctx context.Context, scope, quarterKey string, paid bool, date string) (*model.PaymentStatus, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, fmt.Errorf("%w: scope is required", ErrInvalidInput)
	}
	key, err := calendar.ParseKey(quarterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	status := model.PaymentStatus{
		QuarterKey: key.String(),
		Paid:       paid,
		UpdatedAt:  s.now().UTC(),
	}
	if paid {
		if date == "" {
			status.Date = calendar.FormatISO(s.now())
		} else {
			d, err := calendar.ParseISO(date)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			status.Date = calendar.FormatISO(d)
		}
	}

	if err := s.store.Upsert(ctx, scope, status); err != nil {
		return nil, err
	}
	s.log.Info().Str("scope", scope).Str("quarter", status.QuarterKey).Bool("paid", paid).Msg("payment status updated")
	return &status, nil
}

func (s *PaymentService) Statuses(ctx context.Context, scope string) (model.PaymentStatuses, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return model.PaymentStatuses{}, nil
	}
	return s.store.List(ctx, scope)
}
