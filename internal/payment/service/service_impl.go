package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/authorization"
	"github.com/smallbiznis/faktur/internal/clock"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/faktur/internal/payment/domain"
	"github.com/smallbiznis/faktur/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	paymentrepo repository.Repository[paymentdomain.Payment]
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		clock: p.Clock,

		paymentrepo: repository.ProvideStore[paymentdomain.Payment](p.DB),
	}
}

// Apply settles an amount against an invoice. The invoice row is locked
// for the duration of the transaction so concurrent payments serialize
// and can never push paid_amount past total_amount.
func (s *Service) Apply(ctx context.Context, actor authdomain.Identity, req paymentdomain.ApplyPaymentRequest) (*paymentdomain.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, paymentdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	payment := &paymentdomain.Payment{
		ID:            s.genID.Generate(),
		InvoiceID:     req.InvoiceID,
		Amount:        req.Amount,
		Method:        paymentdomain.MethodMock,
		TransactionID: "TXN-" + ulid.Make().String(),
		Status:        paymentdomain.StatusSuccess,
		PaidAt:        now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id = ?", req.InvoiceID)
		// sqlite has no row locks; its single writer already serializes.
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var invoice invoicedomain.Invoice
		if err := query.First(&invoice).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return invoicedomain.ErrInvoiceNotFound
			}
			return err
		}

		if !actor.IsAdmin() && invoice.CustomerID != actor.UserID {
			return authorization.ErrForbidden
		}

		switch invoice.Status {
		case invoicedomain.InvoiceStatusDraft:
			return paymentdomain.ErrDraftInvoice
		case invoicedomain.InvoiceStatusPaid:
			return paymentdomain.ErrAlreadyPaid
		}

		outstanding := invoice.Outstanding()
		if req.Amount.GreaterThan(outstanding) {
			return &paymentdomain.ExceedsOutstandingError{Outstanding: outstanding}
		}

		newPaid := invoice.PaidAmount.Add(req.Amount)
		updates := map[string]any{"paid_amount": newPaid}
		if newPaid.GreaterThanOrEqual(invoice.TotalAmount) {
			updates["status"] = invoicedomain.InvoiceStatusPaid
		}

		if err := tx.Model(&invoicedomain.Invoice{}).Where("id = ?", invoice.ID).Updates(updates).Error; err != nil {
			return err
		}

		return s.paymentrepo.WithTrx(tx).Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment applied",
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)

	return payment, nil
}

func (s *Service) List(ctx context.Context, actor authdomain.Identity, req paymentdomain.ListPaymentRequest) ([]paymentdomain.Payment, error) {
	filter := &paymentdomain.Payment{}
	if req.InvoiceID != nil {
		filter.InvoiceID = *req.InvoiceID
	}

	query := s.db.WithContext(ctx).Model(&paymentdomain.Payment{}).Where(filter)

	// Non-admins only see payments on their own invoices.
	if !actor.IsAdmin() {
		query = query.Where("invoice_id IN (?)",
			s.db.Model(&invoicedomain.Invoice{}).Select("id").Where("customer_id = ?", actor.UserID),
		)
	}

	var payments []paymentdomain.Payment
	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
