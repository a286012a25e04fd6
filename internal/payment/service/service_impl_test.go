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
	"github.com/smallbiznis/faktur/internal/authorization"
	"github.com/smallbiznis/faktur/internal/clock"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/faktur/internal/payment/domain"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   paymentdomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	admin authdomain.Identity
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&invoicedomain.Invoice{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	})

	return &fixture{
		svc:  svc,
		db:   db,
		node: node,
		admin: authdomain.Identity{
			UserID: node.Generate(),
			Role:   userdomain.RoleAdmin,
		},
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) seedInvoice(t *testing.T, status invoicedomain.InvoiceStatus, total, paid string) *invoicedomain.Invoice {
	t.Helper()
	invoice := &invoicedomain.Invoice{
		ID:          f.node.Generate(),
		CustomerID:  f.node.Generate(),
		CreatedBy:   f.admin.UserID,
		DueDate:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:      status,
		TotalAmount: money(total),
		PaidAmount:  money(paid),
	}
	require.NoError(t, f.db.Create(invoice).Error)
	return invoice
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *invoicedomain.Invoice {
	t.Helper()
	var invoice invoicedomain.Invoice
	require.NoError(t, f.db.First(&invoice, "id = ?", id).Error)
	return &invoice
}

func TestApplyPartialThenFullPayment(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.seedInvoice(t, invoicedomain.InvoiceStatusSubmitted, "1000.00", "0.00")

	first, err := f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    money("500.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.MethodMock, first.Method)
	assert.Equal(t, paymentdomain.StatusSuccess, first.Status)
	assert.Regexp(t, `^TXN-[0-9A-Z]{26}$`, first.TransactionID)

	mid := f.reload(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusSubmitted, mid.Status)
	assert.True(t, mid.PaidAmount.Equal(money("500.00")), "paid %s", mid.PaidAmount)

	second, err := f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    money("500.00"),
	})
	require.NoError(t, err)
	// The clock is frozen; transaction ids must still never collide.
	assert.NotEqual(t, first.TransactionID, second.TransactionID)

	done := f.reload(t, invoice.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, done.Status)
	assert.True(t, done.PaidAmount.Equal(money("1000.00")))

	// The invoice is settled; even a cent more is rejected.
	_, err = f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    money("0.01"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyPaid)
}

func TestApplyOverpaymentRejectedWhole(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.seedInvoice(t, invoicedomain.InvoiceStatusSubmitted, "1000.00", "0.00")

	_, err := f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    money("1500.00"),
	})

	var exceedsErr *paymentdomain.ExceedsOutstandingError
	require.ErrorAs(t, err, &exceedsErr)
	assert.True(t, exceedsErr.Outstanding.Equal(money("1000.00")))

	after := f.reload(t, invoice.ID)
	assert.True(t, after.PaidAmount.IsZero(), "paid %s", after.PaidAmount)
	assert.Equal(t, invoicedomain.InvoiceStatusSubmitted, after.Status)

	var payments int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)
}

func TestApplyRejectsDraftAndInvalidAmount(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	draft := f.seedInvoice(t, invoicedomain.InvoiceStatusDraft, "100.00", "0.00")

	_, err := f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{
		InvoiceID: draft.ID,
		Amount:    money("50.00"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrDraftInvoice)

	_, err = f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{
		InvoiceID: draft.ID,
		Amount:    money("0.00"),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{
		InvoiceID: f.node.Generate(),
		Amount:    money("50.00"),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestApplyOwnership(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.seedInvoice(t, invoicedomain.InvoiceStatusSubmitted, "100.00", "0.00")

	owner := authdomain.Identity{UserID: invoice.CustomerID, Role: userdomain.RoleUser}
	stranger := authdomain.Identity{UserID: f.node.Generate(), Role: userdomain.RoleUser}

	_, err := f.svc.Apply(ctx, stranger, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    money("100.00"),
	})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.Apply(ctx, owner, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    money("100.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceStatusPaid, f.reload(t, invoice.ID).Status)
}

func TestListScopesNonAdmin(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	mine := f.seedInvoice(t, invoicedomain.InvoiceStatusSubmitted, "100.00", "0.00")
	theirs := f.seedInvoice(t, invoicedomain.InvoiceStatusSubmitted, "200.00", "0.00")

	owner := authdomain.Identity{UserID: mine.CustomerID, Role: userdomain.RoleUser}

	_, err := f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{InvoiceID: mine.ID, Amount: money("100.00")})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.admin, paymentdomain.ApplyPaymentRequest{InvoiceID: theirs.ID, Amount: money("200.00")})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, f.admin, paymentdomain.ListPaymentRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := f.svc.List(ctx, owner, paymentdomain.ListPaymentRequest{})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.ID, scoped[0].InvoiceID)

	filtered, err := f.svc.List(ctx, f.admin, paymentdomain.ListPaymentRequest{InvoiceID: &theirs.ID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, theirs.ID, filtered[0].InvoiceID)
}
