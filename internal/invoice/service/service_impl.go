package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/authorization"
	"github.com/smallbiznis/faktur/internal/clock"
	"github.com/smallbiznis/faktur/internal/config"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/internal/providers/pdf"
	"github.com/smallbiznis/faktur/internal/providers/storage"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/smallbiznis/faktur/pkg/db/option"
	"github.com/smallbiznis/faktur/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	UserSvc  userdomain.Service
	PDF      pdf.Provider
	Blobs    storage.BlobStore
	Branding *config.BrandingConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	usersvc  userdomain.Service
	pdf      pdf.Provider
	blobs    storage.BlobStore
	branding *config.BrandingConfigHolder

	invoicerepo repository.Repository[invoicedomain.Invoice]
	itemrepo    repository.Repository[invoicedomain.InvoiceItem]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		usersvc:  p.UserSvc,
		pdf:      p.PDF,
		blobs:    p.Blobs,
		branding: p.Branding,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		itemrepo:    repository.ProvideStore[invoicedomain.InvoiceItem](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, actor authdomain.Identity, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}
	if err := s.validateDueDate(req.DueDate); err != nil {
		return nil, err
	}

	customer, err := s.usersvc.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, invoicedomain.ErrInvalidCustomer
	}

	invoice := &invoicedomain.Invoice{
		ID:           s.genID.Generate(),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		CreatedBy:    actor.UserID,
		DueDate:      req.DueDate,
		Status:       invoicedomain.InvoiceStatusDraft,
		TotalAmount:  sumItems(req.Items),
		PaidAmount:   decimal.Zero,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.invoicerepo.WithTrx(tx).Create(ctx, invoice); err != nil {
			return err
		}
		return s.itemrepo.WithTrx(tx).BatchCreate(ctx, s.buildItems(invoice.ID, req.Items))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("customer_id", invoice.CustomerID.String()),
		zap.String("total_amount", invoice.TotalAmount.StringFixed(2)),
	)

	return s.load(ctx, invoice.ID)
}

// Update edits a draft. Items, when present, are replaced wholesale and
// the total recomputed; merging partial item edits is not supported.
func (s *Service) Update(ctx context.Context, actor authdomain.Identity, id snowflake.ID, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.Invoice, error) {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != invoicedomain.InvoiceStatusDraft {
		return nil, invoicedomain.ErrNotDraft
	}

	if req.Items != nil {
		if err := validateItems(req.Items); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if err := s.validateDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{}
	if req.CustomerID != nil {
		customer, err := s.usersvc.GetByID(ctx, *req.CustomerID)
		if err != nil {
			return nil, invoicedomain.ErrInvalidCustomer
		}
		updates["customer_id"] = customer.ID
		updates["customer_name"] = customer.Name
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Items != nil {
		updates["total_amount"] = sumItems(req.Items)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&invoicedomain.Invoice{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Items != nil {
			if err := tx.Where("invoice_id = ?", id).Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
				return err
			}
			if err := s.itemrepo.WithTrx(tx).BatchCreate(ctx, s.buildItems(id, req.Items)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.load(ctx, id)
}

func (s *Service) Submit(ctx context.Context, actor authdomain.Identity, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Resubmission is rejected, not a no-op.
	if invoice.Status != invoicedomain.InvoiceStatusDraft {
		return nil, invoicedomain.ErrNotDraft
	}

	if err := s.invoicerepo.Update(ctx, id.String(), map[string]any{
		"status": invoicedomain.InvoiceStatusSubmitted,
	}); err != nil {
		return nil, err
	}

	s.log.Info("invoice submitted", zap.String("invoice_id", id.String()))

	return s.load(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor authdomain.Identity, id snowflake.ID) error {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == invoicedomain.InvoiceStatusPaid {
		return invoicedomain.ErrPaidImmutable
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&invoicedomain.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM payments WHERE invoice_id = ?`, id).Error; err != nil {
			return err
		}
		return s.invoicerepo.WithTrx(tx).Delete(ctx, id.String())
	})
}

func (s *Service) List(ctx context.Context, actor authdomain.Identity, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	filter := &invoicedomain.Invoice{}

	// Non-admins only ever see invoices billed to them.
	if !actor.IsAdmin() {
		filter.CustomerID = actor.UserID
	} else if req.CustomerID != nil {
		filter.CustomerID = *req.CustomerID
	}

	options := []option.QueryOption{
		option.WithPreload("Items"),
		option.WithOrder("created_at DESC"),
	}

	if req.Status != nil {
		if *req.Status == invoicedomain.InvoiceStatusOverdue {
			// OVERDUE is derived, not stored.
			filter.Status = invoicedomain.InvoiceStatusSubmitted
			options = append(options, option.ApplyOperator(option.Condition{
				Field:    "due_date",
				Operator: option.LT,
				Value:    s.clock.Now(),
			}))
		} else {
			filter.Status = *req.Status
		}
	}

	if actor.IsAdmin() && req.CustomerName != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "customer_name",
			Operator: option.LIKE,
			Value:    "%" + strings.TrimSpace(*req.CustomerName) + "%",
		}))
	}

	items, err := s.invoicerepo.Find(ctx, filter, options...)
	if err != nil {
		return nil, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoices, nil
}

func (s *Service) GetByID(ctx context.Context, actor authdomain.Identity, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && invoice.CustomerID != actor.UserID {
		return nil, authorization.ErrForbidden
	}
	return invoice, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.invoicerepo.FindOne(ctx,
		&invoicedomain.Invoice{ID: id},
		option.WithPreload("Items"),
	)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) buildItems(invoiceID snowflake.ID, inputs []invoicedomain.ItemInput) []*invoicedomain.InvoiceItem {
	items := make([]*invoicedomain.InvoiceItem, 0, len(inputs))
	for _, input := range inputs {
		items = append(items, &invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			InvoiceID:   invoiceID,
			Description: strings.TrimSpace(input.Description),
			Qty:         input.Qty,
			Price:       input.Price,
		})
	}
	return items
}

func (s *Service) validateDueDate(dueDate time.Time) error {
	today := s.clock.Now().Truncate(24 * time.Hour)
	if dueDate.Before(today) {
		return invoicedomain.ErrPastDueDate
	}
	return nil
}

func validateItems(items []invoicedomain.ItemInput) error {
	if len(items) == 0 {
		return invoicedomain.ErrEmptyItems
	}
	for _, item := range items {
		if item.Qty < 1 {
			return invoicedomain.ErrInvalidQty
		}
		if item.Price.IsNegative() {
			return invoicedomain.ErrInvalidPrice
		}
	}
	return nil
}

func sumItems(items []invoicedomain.ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(item.Qty)))
	}
	return total
}
