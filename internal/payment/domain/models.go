// Package domain contains payment records and the payment contract.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
)

const (
	// MethodMock is the only settlement method; no gateway is involved
	// and every accepted payment settles immediately.
	MethodMock = "mock"

	StatusSuccess = "SUCCESS"
)

// Payment is an immutable settlement record against an invoice. Records
// are never updated or deleted on their own; they go away only when the
// invoice does.
type Payment struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID     snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(18,2);not null"`
	Method        string          `json:"method" gorm:"type:text;not null"`
	TransactionID string          `json:"transaction_id" gorm:"type:text;not null;uniqueIndex"`
	Status        string          `json:"status" gorm:"type:text;not null"`
	PaidAt        time.Time       `json:"paid_at" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

type ApplyPaymentRequest struct {
	InvoiceID snowflake.ID
	Amount    decimal.Decimal
}

type ListPaymentRequest struct {
	InvoiceID *snowflake.ID
}

// Service applies and lists payments. Apply is the only write path and
// runs under a row lock on the invoice.
type Service interface {
	Apply(ctx context.Context, actor authdomain.Identity, req ApplyPaymentRequest) (*Payment, error)
	List(ctx context.Context, actor authdomain.Identity, req ListPaymentRequest) ([]Payment, error)
}

var (
	ErrDraftInvoice  = errors.New("draft_invoice")
	ErrAlreadyPaid   = errors.New("already_paid")
	ErrInvalidAmount = errors.New("invalid_amount")
)

// ExceedsOutstandingError rejects an overpayment and carries the
// outstanding balance so callers can report it.
type ExceedsOutstandingError struct {
	Outstanding decimal.Decimal
}

func (e *ExceedsOutstandingError) Error() string {
	return fmt.Sprintf("payment exceeds outstanding balance of %s", e.Outstanding.StringFixed(2))
}
