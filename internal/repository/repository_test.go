package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nurpe/amc-schedule/internal/db"
	"github.com/nurpe/amc-schedule/internal/model"
)

type RepositorySuite struct {
	suite.Suite
	db       *gorm.DB
	results  *ResultRepository
	payments *PaymentRepository
}

func (s *RepositorySuite) SetupTest() {
	name := strings.ReplaceAll(s.T().Name(), "/", "_")
	database, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(database))

	s.db = database
	s.results = NewResultRepository(database)
	s.payments = NewPaymentRepository(database)
}

func (s *RepositorySuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())
}

func (s *RepositorySuite) TestResultSaveAndGet() {
	ctx := context.Background()
	record := &model.BatchRecord{
		Fingerprint: "abc",
		Kind:        model.KindAMC,
		BatchID:     "batch-1",
		Results: []model.ProductResult{{
			ID:          "p1",
			ProductName: "Chiller",
			Quarters: []model.QuarterEntry{{
				QuarterKey:  "JFM-2023",
				BaseAmount:  2000,
				GSTAmount:   360,
				TotalAmount: 2360,
			}},
			TotalAmountWithGST: 2360,
		}},
		Summary:   model.BatchSummary{Processed: 1, Successful: 1, TotalValue: 2360},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	s.Require().NoError(s.results.Save(ctx, record))

	got, err := s.results.Get(ctx, "abc")
	s.Require().NoError(err)
	s.Equal(model.KindAMC, got.Kind)
	s.Equal("batch-1", got.BatchID)
	s.Equal(record.Results, got.Results)
	s.Equal(record.Summary, got.Summary)
	s.True(record.CreatedAt.Equal(got.CreatedAt))
}

func (s *RepositorySuite) TestResultSaveReplaces() {
	ctx := context.Background()
	s.Require().NoError(s.results.Save(ctx, &model.BatchRecord{Fingerprint: "f", Kind: model.KindAMC, BatchID: "old"}))
	s.Require().NoError(s.results.Save(ctx, &model.BatchRecord{Fingerprint: "f", Kind: model.KindAMC, BatchID: "new"}))

	got, err := s.results.Get(ctx, "f")
	s.Require().NoError(err)
	s.Equal("new", got.BatchID)

	var count int64
	s.Require().NoError(s.db.Raw(`SELECT COUNT(*) FROM schedule_results`).Scan(&count).Error)
	s.Equal(int64(1), count)
}

func (s *RepositorySuite) TestResultMissing() {
	_, err := s.results.Get(context.Background(), "missing")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *RepositorySuite) TestResultDelete() {
	ctx := context.Background()
	s.Require().NoError(s.results.Save(ctx, &model.BatchRecord{Fingerprint: "gone", Kind: model.KindWarranty}))
	s.Require().NoError(s.results.Delete(ctx, "gone"))

	_, err := s.results.Get(ctx, "gone")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *RepositorySuite) TestPaymentUpsertAndList() {
	ctx := context.Background()
	s.Require().NoError(s.payments.Upsert(ctx, "site-a", model.PaymentStatus{QuarterKey: "JFM-2024", Paid: true, Date: "2024-02-10"}))
	s.Require().NoError(s.payments.Upsert(ctx, "site-a", model.PaymentStatus{QuarterKey: "AMJ-2024"}))
	s.Require().NoError(s.payments.Upsert(ctx, "site-b", model.PaymentStatus{QuarterKey: "JFM-2024", Paid: true}))

	statuses, err := s.payments.List(ctx, "site-a")
	s.Require().NoError(err)
	s.Len(statuses, 2)
	s.True(statuses.IsPaid("JFM-2024"))
	s.Equal("2024-02-10", statuses["JFM-2024"].Date)
	s.False(statuses.IsPaid("AMJ-2024"))
	s.Empty(statuses["AMJ-2024"].Date)

	s.Require().NoError(s.payments.Upsert(ctx, "site-a", model.PaymentStatus{QuarterKey: "JFM-2024", Paid: false}))
	statuses, err = s.payments.List(ctx, "site-a")
	s.Require().NoError(err)
	s.False(statuses.IsPaid("JFM-2024"))
	s.Empty(statuses["JFM-2024"].Date)
}

func (s *RepositorySuite) TestPaymentDelete() {
	ctx := context.Background()
	s.Require().NoError(s.payments.Upsert(ctx, "x", model.PaymentStatus{QuarterKey: "OND-2023", Paid: true}))
	s.Require().NoError(s.payments.Delete(ctx, "x", "OND-2023"))

	statuses, err := s.payments.List(ctx, "x")
	s.Require().NoError(err)
	s.Empty(statuses)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}
