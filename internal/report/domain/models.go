// Package domain contains read-only reporting views over the ledger.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
)

// Summary is the financial rollup across the caller's invoices.
type Summary struct {
	TotalInvoices    int64                      `json:"total_invoices"`
	TotalPaid        int64                      `json:"total_paid"`
	TotalUnpaid      int64                      `json:"total_unpaid"`
	TotalRevenue     decimal.Decimal            `json:"total_revenue"`
	TotalOutstanding decimal.Decimal            `json:"total_outstanding"`
	RevenueByStatus  map[string]decimal.Decimal `json:"revenue_by_status"`
}

// InvoiceBrief is the slim invoice row surfaced in analytics feeds.
type InvoiceBrief struct {
	ID           snowflake.ID                `json:"id"`
	CustomerName string                      `json:"customer_name"`
	Status       invoicedomain.InvoiceStatus `json:"status"`
	TotalAmount  decimal.Decimal             `json:"total_amount"`
	DueDate      time.Time                   `json:"due_date"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// Analytics is the operational view: lifecycle counts and recent activity.
type Analytics struct {
	CountsByStatus map[string]int64 `json:"counts_by_status"`
	OverdueCount   int64            `json:"overdue_count"`
	Recent         []InvoiceBrief   `json:"recent_invoices"`
}

// Service computes reports on demand. Nothing is materialized; both
// views derive from invoice rows at call time.
type Service interface {
	Summary(ctx context.Context, actor authdomain.Identity) (*Summary, error)
	Analytics(ctx context.Context, actor authdomain.Identity) (*Analytics, error)
}
