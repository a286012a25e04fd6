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
	"github.com/smallbiznis/faktur/internal/config"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/faktur/internal/payment/domain"
	"github.com/smallbiznis/faktur/internal/providers/pdf"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userStub struct {
	users map[snowflake.ID]*userdomain.User
}

func (u *userStub) Create(ctx context.Context, req userdomain.CreateUserRequest) (*userdomain.User, error) {
	return nil, nil
}

func (u *userStub) GetByID(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	return user, nil
}

func (u *userStub) FindByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return nil, userdomain.ErrUserNotFound
}

func (u *userStub) ListCustomers(ctx context.Context) ([]userdomain.User, error) {
	return nil, nil
}

type pdfStub struct {
	calls int
	last  pdf.InvoiceData
}

func (p *pdfStub) GenerateInvoice(ctx context.Context, data pdf.InvoiceData) ([]byte, error) {
	p.calls++
	p.last = data
	return []byte("%PDF-1.4 stub"), nil
}

type blobStub struct {
	objects map[string][]byte
}

func (b *blobStub) Put(ctx context.Context, key string, content []byte) error {
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = content
	return nil
}

func (b *blobStub) PublicURL(key string) string {
	return "https://blobs.test/" + key
}

type fixture struct {
	svc      invoicedomain.Service
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	pdf      *pdfStub
	blobs    *blobStub
	admin    authdomain.Identity
	customer *userdomain.User
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	customer := &userdomain.User{
		ID:    node.Generate(),
		Name:  "Acme Corp",
		Email: "billing@acme.test",
		Role:  userdomain.RoleUser,
	}
	require.NoError(t, db.Create(customer).Error)

	branding, err := config.NewBrandingConfigHolder()
	require.NoError(t, err)

	pdfProvider := &pdfStub{}
	blobs := &blobStub{}

	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		UserSvc:  &userStub{users: map[snowflake.ID]*userdomain.User{customer.ID: customer}},
		PDF:      pdfProvider,
		Blobs:    blobs,
		Branding: branding,
	})

	return &fixture{
		svc:   svc,
		db:    db,
		node:  node,
		clock: fakeClock,
		pdf:   pdfProvider,
		blobs: blobs,
		admin: authdomain.Identity{
			UserID: node.Generate(),
			Email:  "admin@faktur.test",
			Role:   userdomain.RoleAdmin,
		},
		customer: customer,
	}
}

func (f *fixture) customerIdentity() authdomain.Identity {
	return authdomain.Identity{
		UserID: f.customer.ID,
		Email:  f.customer.Email,
		Role:   userdomain.RoleUser,
	}
}

func (f *fixture) dueDate() time.Time {
	return f.clock.Now().AddDate(0, 0, 14)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) createInvoice(t *testing.T, items []invoicedomain.ItemInput) *invoicedomain.Invoice {
	t.Helper()
	invoice, err := f.svc.Create(context.Background(), f.admin, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		DueDate:    f.dueDate(),
		Items:      items,
	})
	require.NoError(t, err)
	return invoice
}

func TestCreateInvoiceComputesTotal(t *testing.T) {
	f := setupFixture(t)

	invoice := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Consulting", Qty: 2, Price: money("500.00")},
		{Description: "Hosting", Qty: 1, Price: money("250.00")},
	})

	assert.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
	assert.True(t, invoice.TotalAmount.Equal(money("1250.00")), "total %s", invoice.TotalAmount)
	assert.True(t, invoice.PaidAmount.IsZero())
	assert.Equal(t, "Acme Corp", invoice.CustomerName)
	assert.Len(t, invoice.Items, 2)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.admin, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		DueDate:    f.dueDate(),
	})
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyItems)

	_, err = f.svc.Create(ctx, f.admin, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		DueDate:    f.dueDate(),
		Items:      []invoicedomain.ItemInput{{Description: "x", Qty: 0, Price: money("1.00")}},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidQty)

	_, err = f.svc.Create(ctx, f.admin, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		DueDate:    f.dueDate(),
		Items:      []invoicedomain.ItemInput{{Description: "x", Qty: 1, Price: money("-1.00")}},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPrice)

	_, err = f.svc.Create(ctx, f.admin, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.ID,
		DueDate:    f.clock.Now().AddDate(0, 0, -1),
		Items:      []invoicedomain.ItemInput{{Description: "x", Qty: 1, Price: money("1.00")}},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrPastDueDate)

	_, err = f.svc.Create(ctx, f.admin, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.node.Generate(),
		DueDate:    f.dueDate(),
		Items:      []invoicedomain.ItemInput{{Description: "x", Qty: 1, Price: money("1.00")}},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidCustomer)
}

func TestUpdateReplacesItemsWholesale(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Old line", Qty: 1, Price: money("100.00")},
	})

	updated, err := f.svc.Update(ctx, f.admin, invoice.ID, invoicedomain.UpdateInvoiceRequest{
		Items: []invoicedomain.ItemInput{
			{Description: "New line A", Qty: 3, Price: money("10.00")},
			{Description: "New line B", Qty: 1, Price: money("5.50")},
		},
	})
	require.NoError(t, err)

	assert.True(t, updated.TotalAmount.Equal(money("35.50")), "total %s", updated.TotalAmount)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, "New line A", updated.Items[0].Description)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceItem{}).
		Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestUpdateRejectedAfterSubmit(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Line", Qty: 1, Price: money("100.00")},
	})

	_, err := f.svc.Submit(ctx, f.admin, invoice.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.admin, invoice.ID, invoicedomain.UpdateInvoiceRequest{
		Items: []invoicedomain.ItemInput{{Description: "x", Qty: 1, Price: money("1.00")}},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrNotDraft)
}

func TestSubmitTransitionsAndRejectsResubmit(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Line", Qty: 1, Price: money("100.00")},
	})

	submitted, err := f.svc.Submit(ctx, f.admin, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusSubmitted, submitted.Status)

	_, err = f.svc.Submit(ctx, f.admin, invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNotDraft)
}

func TestDeleteRules(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	draft := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Line", Qty: 1, Price: money("100.00")},
	})
	require.NoError(t, f.svc.Delete(ctx, f.admin, draft.ID))

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.InvoiceItem{}).
		Where("invoice_id = ?", draft.ID).Count(&count).Error)
	assert.Zero(t, count)

	paid := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Line", Qty: 1, Price: money("100.00")},
	})
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", paid.ID).
		Updates(map[string]any{"status": invoicedomain.InvoiceStatusPaid, "paid_amount": money("100.00")}).Error)

	err := f.svc.Delete(ctx, f.admin, paid.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrPaidImmutable)
}

func TestListScopesNonAdminToOwnInvoices(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	mine := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Mine", Qty: 1, Price: money("10.00")},
	})

	other := &invoicedomain.Invoice{
		ID:          f.node.Generate(),
		CustomerID:  f.node.Generate(),
		CreatedBy:   f.admin.UserID,
		DueDate:     f.dueDate(),
		Status:      invoicedomain.InvoiceStatusDraft,
		TotalAmount: money("99.00"),
		PaidAmount:  decimal.Zero,
	}
	require.NoError(t, f.db.Create(other).Error)

	invoices, err := f.svc.List(ctx, f.customerIdentity(), invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, mine.ID, invoices[0].ID)

	all, err := f.svc.List(ctx, f.admin, invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListOverdueFilter(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	overdue := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Late", Qty: 1, Price: money("10.00")},
	})
	onTime := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Future", Qty: 1, Price: money("10.00")},
	})

	_, err := f.svc.Submit(ctx, f.admin, overdue.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.admin, onTime.ID)
	require.NoError(t, err)

	// Move the first invoice past its due date.
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", overdue.ID).
		Update("due_date", f.clock.Now().AddDate(0, 0, -3)).Error)

	status := invoicedomain.InvoiceStatusOverdue
	invoices, err := f.svc.List(ctx, f.admin, invoicedomain.ListInvoiceRequest{Status: &status})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, overdue.ID, invoices[0].ID)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, invoices[0].DisplayStatus(f.clock.Now()))
}

func TestGetByIDOwnership(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Line", Qty: 1, Price: money("10.00")},
	})

	got, err := f.svc.GetByID(ctx, f.customerIdentity(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, got.ID)

	stranger := authdomain.Identity{UserID: f.node.Generate(), Role: userdomain.RoleUser}
	_, err = f.svc.GetByID(ctx, stranger, invoice.ID)
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.GetByID(ctx, f.admin, f.node.Generate())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestExportPaidInvoice(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	invoice := f.createInvoice(t, []invoicedomain.ItemInput{
		{Description: "Line", Qty: 2, Price: money("50.00")},
	})

	_, err := f.svc.Export(ctx, f.admin, invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNotPaid)

	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{"status": invoicedomain.InvoiceStatusPaid, "paid_amount": money("100.00")}).Error)

	result, err := f.svc.Export(ctx, f.admin, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Invoice.PDFKey)
	assert.Contains(t, result.URL, *result.Invoice.PDFKey)
	assert.Equal(t, 1, f.pdf.calls)
	assert.Equal(t, "100.00", f.pdf.last.Total)
	assert.Len(t, f.blobs.objects, 1)
}
