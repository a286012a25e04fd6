package service

import (
	"context"

	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/clock"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	reportdomain "github.com/smallbiznis/faktur/internal/report/domain"
	"github.com/smallbiznis/faktur/pkg/db/option"
	"github.com/smallbiznis/faktur/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentLimit = 10

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	invoicerepo repository.Repository[invoicedomain.Invoice]
}

func NewService(p ServiceParam) reportdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("report.service"),
		clock: p.Clock,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

// Summary aggregates in application code with fixed-point arithmetic.
// SQL SUM over decimal columns degrades to float on some drivers.
func (s *Service) Summary(ctx context.Context, actor authdomain.Identity) (*reportdomain.Summary, error) {
	invoices, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}

	summary := &reportdomain.Summary{
		TotalRevenue:     decimal.Zero,
		TotalOutstanding: decimal.Zero,
		RevenueByStatus:  map[string]decimal.Decimal{},
	}

	for _, invoice := range invoices {
		summary.TotalInvoices++

		switch invoice.Status {
		case invoicedomain.InvoiceStatusPaid:
			summary.TotalPaid++
			summary.TotalRevenue = summary.TotalRevenue.Add(invoice.TotalAmount)
		case invoicedomain.InvoiceStatusSubmitted:
			summary.TotalUnpaid++
			summary.TotalOutstanding = summary.TotalOutstanding.Add(invoice.Outstanding())
		default:
			summary.TotalUnpaid++
		}

		status := string(invoice.Status)
		bucket, ok := summary.RevenueByStatus[status]
		if !ok {
			bucket = decimal.Zero
		}
		summary.RevenueByStatus[status] = bucket.Add(invoice.TotalAmount)
	}

	return summary, nil
}

func (s *Service) Analytics(ctx context.Context, actor authdomain.Identity) (*reportdomain.Analytics, error) {
	invoices, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	analytics := &reportdomain.Analytics{
		CountsByStatus: map[string]int64{},
	}

	for _, invoice := range invoices {
		display := invoice.DisplayStatus(now)
		analytics.CountsByStatus[string(display)]++
		if display == invoicedomain.InvoiceStatusOverdue {
			analytics.OverdueCount++
		}
	}

	filter := &invoicedomain.Invoice{}
	if !actor.IsAdmin() {
		filter.CustomerID = actor.UserID
	}
	recent, err := s.invoicerepo.Find(ctx, filter,
		option.WithOrder("created_at DESC"),
		option.WithLimit(recentLimit),
	)
	if err != nil {
		return nil, err
	}

	for _, invoice := range recent {
		analytics.Recent = append(analytics.Recent, reportdomain.InvoiceBrief{
			ID:           invoice.ID,
			CustomerName: invoice.CustomerName,
			Status:       invoice.DisplayStatus(now),
			TotalAmount:  invoice.TotalAmount,
			DueDate:      invoice.DueDate,
			CreatedAt:    invoice.CreatedAt,
		})
	}

	return analytics, nil
}

func (s *Service) scoped(ctx context.Context, actor authdomain.Identity) ([]invoicedomain.Invoice, error) {
	query := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).Order("created_at DESC")
	if !actor.IsAdmin() {
		query = query.Where("customer_id = ?", actor.UserID)
	}

	var invoices []invoicedomain.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
