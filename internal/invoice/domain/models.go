// Package domain contains the invoice ledger models and contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSubmitted InvoiceStatus = "SUBMITTED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"

	// InvoiceStatusOverdue is derived at read time from the due date.
	// It is never stored.
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Invoice tracks a billed amount against payments received. Monetary
// fields are fixed-point decimals; paid_amount never exceeds total_amount.
type Invoice struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	CustomerID    snowflake.ID    `json:"customer_id" gorm:"not null;index"`
	CustomerName  string          `json:"customer_name" gorm:"type:text"`
	CreatedBy     snowflake.ID    `json:"created_by" gorm:"not null;index"`
	DueDate       time.Time       `json:"due_date" gorm:"not null"`
	Status        InvoiceStatus   `json:"status" gorm:"type:text;not null;default:'DRAFT';index"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(18,2);not null"`
	PaidAmount    decimal.Decimal `json:"paid_amount" gorm:"type:decimal(18,2);not null"`
	PDFKey        *string         `json:"pdf_key,omitempty" gorm:"type:text"`
	PDFUploadedAt *time.Time      `json:"pdf_uploaded_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Outstanding returns total_amount - paid_amount.
func (i Invoice) Outstanding() decimal.Decimal {
	return i.TotalAmount.Sub(i.PaidAmount)
}

// DisplayStatus derives OVERDUE for submitted invoices past their due
// date. Stored status is never mutated by this.
func (i Invoice) DisplayStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceStatusSubmitted && i.DueDate.Before(now) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// InvoiceItem is a line on an invoice. Lines are replaced wholesale while
// the invoice is a draft and removed with the invoice.
type InvoiceItem struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID   snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Qty         int64           `json:"qty" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// Subtotal is qty x price, computed on read and never stored.
func (it InvoiceItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(it.Qty))
}
