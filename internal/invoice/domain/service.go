package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
)

type ItemInput struct {
	Description string          `json:"description"`
	Qty         int64           `json:"qty"`
	Price       decimal.Decimal `json:"price"`
}

type CreateInvoiceRequest struct {
	CustomerID snowflake.ID
	DueDate    time.Time
	Items      []ItemInput
}

// UpdateInvoiceRequest replaces items wholesale when Items is non-nil;
// partial item edits are deliberately not supported.
type UpdateInvoiceRequest struct {
	CustomerID *snowflake.ID
	DueDate    *time.Time
	Items      []ItemInput
}

type ListInvoiceRequest struct {
	Status       *InvoiceStatus
	CustomerID   *snowflake.ID
	CustomerName *string
}

type ExportResult struct {
	Invoice Invoice
	URL     string
}

// Service owns invoice lifecycle transitions. Every call takes the
// request-scoped identity; role and ownership are never cached.
type Service interface {
	Create(ctx context.Context, actor authdomain.Identity, req CreateInvoiceRequest) (*Invoice, error)
	Update(ctx context.Context, actor authdomain.Identity, id snowflake.ID, req UpdateInvoiceRequest) (*Invoice, error)
	Submit(ctx context.Context, actor authdomain.Identity, id snowflake.ID) (*Invoice, error)
	Delete(ctx context.Context, actor authdomain.Identity, id snowflake.ID) error
	List(ctx context.Context, actor authdomain.Identity, req ListInvoiceRequest) ([]Invoice, error)
	GetByID(ctx context.Context, actor authdomain.Identity, id snowflake.ID) (*Invoice, error)
	Export(ctx context.Context, actor authdomain.Identity, id snowflake.ID) (*ExportResult, error)
}

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")

	// State rules.
	ErrNotDraft      = errors.New("not_draft")
	ErrPaidImmutable = errors.New("paid_immutable")
	ErrNotPaid       = errors.New("not_paid")

	// Input validation.
	ErrEmptyItems      = errors.New("empty_items")
	ErrInvalidQty      = errors.New("invalid_qty")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrPastDueDate     = errors.New("past_due_date")
	ErrInvalidCustomer = errors.New("invalid_customer")
)
