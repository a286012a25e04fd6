package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/clock"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	reportdomain "github.com/smallbiznis/faktur/internal/report/domain"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   reportdomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	admin authdomain.Identity
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fakeClock,
	})

	return &fixture{
		svc:   svc,
		db:    db,
		node:  node,
		clock: fakeClock,
		admin: authdomain.Identity{UserID: node.Generate(), Role: userdomain.RoleAdmin},
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) seedInvoice(t *testing.T, customerID snowflake.ID, status invoicedomain.InvoiceStatus, total, paid string, dueDate, createdAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&invoicedomain.Invoice{
		ID:          f.node.Generate(),
		CustomerID:  customerID,
		CreatedBy:   f.admin.UserID,
		DueDate:     dueDate,
		Status:      status,
		TotalAmount: money(total),
		PaidAmount:  money(paid),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}).Error)
}

func TestSummaryAggregates(t *testing.T) {
	f := setupFixture(t)
	now := f.clock.Now()
	customer := f.node.Generate()

	f.seedInvoice(t, customer, invoicedomain.InvoiceStatusPaid, "1000.00", "1000.00", now.AddDate(0, 0, 5), now.AddDate(0, 0, -5))
	f.seedInvoice(t, customer, invoicedomain.InvoiceStatusSubmitted, "400.00", "150.00", now.AddDate(0, 0, 10), now.AddDate(0, 0, -4))
	f.seedInvoice(t, customer, invoicedomain.InvoiceStatusDraft, "50.00", "0.00", now.AddDate(0, 0, 10), now.AddDate(0, 0, -3))

	summary, err := f.svc.Summary(context.Background(), f.admin)
	require.NoError(t, err)

	assert.EqualValues(t, 3, summary.TotalInvoices)
	assert.EqualValues(t, 1, summary.TotalPaid)
	assert.EqualValues(t, 2, summary.TotalUnpaid)
	assert.True(t, summary.TotalRevenue.Equal(money("1000.00")), "revenue %s", summary.TotalRevenue)
	assert.True(t, summary.TotalOutstanding.Equal(money("250.00")), "outstanding %s", summary.TotalOutstanding)
	assert.True(t, summary.RevenueByStatus["PAID"].Equal(money("1000.00")))
	assert.True(t, summary.RevenueByStatus["SUBMITTED"].Equal(money("400.00")))
	assert.True(t, summary.RevenueByStatus["DRAFT"].Equal(money("50.00")))
}

func TestSummaryScopesNonAdmin(t *testing.T) {
	f := setupFixture(t)
	now := f.clock.Now()
	mine := f.node.Generate()
	other := f.node.Generate()

	f.seedInvoice(t, mine, invoicedomain.InvoiceStatusPaid, "100.00", "100.00", now, now.AddDate(0, 0, -1))
	f.seedInvoice(t, other, invoicedomain.InvoiceStatusPaid, "900.00", "900.00", now, now.AddDate(0, 0, -1))

	summary, err := f.svc.Summary(context.Background(), authdomain.Identity{UserID: mine, Role: userdomain.RoleUser})
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.TotalInvoices)
	assert.True(t, summary.TotalRevenue.Equal(money("100.00")))
}

func TestAnalyticsDerivesOverdue(t *testing.T) {
	f := setupFixture(t)
	now := f.clock.Now()
	customer := f.node.Generate()

	// Submitted and past due counts as overdue, stored status untouched.
	f.seedInvoice(t, customer, invoicedomain.InvoiceStatusSubmitted, "100.00", "0.00", now.AddDate(0, 0, -2), now.AddDate(0, 0, -10))
	f.seedInvoice(t, customer, invoicedomain.InvoiceStatusSubmitted, "100.00", "0.00", now.AddDate(0, 0, 2), now.AddDate(0, 0, -9))
	f.seedInvoice(t, customer, invoicedomain.InvoiceStatusPaid, "100.00", "100.00", now.AddDate(0, 0, -2), now.AddDate(0, 0, -8))

	analytics, err := f.svc.Analytics(context.Background(), f.admin)
	require.NoError(t, err)

	assert.EqualValues(t, 1, analytics.OverdueCount)
	assert.EqualValues(t, 1, analytics.CountsByStatus["OVERDUE"])
	assert.EqualValues(t, 1, analytics.CountsByStatus["SUBMITTED"])
	assert.EqualValues(t, 1, analytics.CountsByStatus["PAID"])
	require.Len(t, analytics.Recent, 3)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, analytics.Recent[0].Status)
}

func TestAnalyticsRecentCapped(t *testing.T) {
	f := setupFixture(t)
	now := f.clock.Now()
	customer := f.node.Generate()

	for i := 0; i < 13; i++ {
		f.seedInvoice(t, customer, invoicedomain.InvoiceStatusDraft, "10.00", "0.00",
			now.AddDate(0, 0, 7), now.Add(-time.Duration(i)*time.Hour))
	}

	analytics, err := f.svc.Analytics(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Len(t, analytics.Recent, 10)
}

func TestAnalyticsRecentScopesNonAdmin(t *testing.T) {
	f := setupFixture(t)
	now := f.clock.Now()
	mine := f.node.Generate()
	other := f.node.Generate()

	f.seedInvoice(t, mine, invoicedomain.InvoiceStatusSubmitted, "100.00", "0.00", now.AddDate(0, 0, 7), now.AddDate(0, 0, -1))
	f.seedInvoice(t, other, invoicedomain.InvoiceStatusSubmitted, "900.00", "0.00", now.AddDate(0, 0, 7), now)

	analytics, err := f.svc.Analytics(context.Background(), authdomain.Identity{UserID: mine, Role: userdomain.RoleUser})
	require.NoError(t, err)
	require.Len(t, analytics.Recent, 1)
	assert.True(t, analytics.Recent[0].TotalAmount.Equal(money("100.00")))
}
