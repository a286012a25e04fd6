package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/authorization"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	"github.com/smallbiznis/faktur/internal/providers/pdf"
	"go.uber.org/zap"
)

const exportDateLayout = "2006-01-02"

// Export renders a paid invoice to PDF, uploads it and records the object
// key. Re-exporting overwrites the previous document.
func (s *Service) Export(ctx context.Context, actor authdomain.Identity, id snowflake.ID) (*invoicedomain.ExportResult, error) {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && invoice.CustomerID != actor.UserID {
		return nil, authorization.ErrForbidden
	}
	if invoice.Status != invoicedomain.InvoiceStatusPaid {
		return nil, invoicedomain.ErrNotPaid
	}

	content, err := s.pdf.GenerateInvoice(ctx, s.buildInvoiceData(*invoice))
	if err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}

	key := fmt.Sprintf("invoices/invoice_%s_%s.pdf", invoice.ID.String(), uuid.NewString())
	if err := s.blobs.Put(ctx, key, content); err != nil {
		return nil, fmt.Errorf("upload invoice pdf: %w", err)
	}

	uploadedAt := s.clock.Now()
	if err := s.invoicerepo.Update(ctx, id.String(), map[string]any{
		"pdf_key":         key,
		"pdf_uploaded_at": uploadedAt,
	}); err != nil {
		return nil, err
	}

	s.log.Info("invoice exported",
		zap.String("invoice_id", id.String()),
		zap.String("pdf_key", key),
	)

	invoice.PDFKey = &key
	invoice.PDFUploadedAt = &uploadedAt

	return &invoicedomain.ExportResult{
		Invoice: *invoice,
		URL:     s.blobs.PublicURL(key),
	}, nil
}

func (s *Service) buildInvoiceData(invoice invoicedomain.Invoice) pdf.InvoiceData {
	branding := s.branding.Get()

	lines := make([]pdf.InvoiceLine, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, pdf.InvoiceLine{
			Description: item.Description,
			Qty:         item.Qty,
			UnitPrice:   item.Price.StringFixed(2),
			Amount:      item.Subtotal().StringFixed(2),
		})
	}

	return pdf.InvoiceData{
		CompanyName:    branding.CompanyName,
		CompanyAddress: branding.CompanyAddress,
		CompanyEmail:   branding.CompanyEmail,
		BankDetails:    branding.BankDetails,
		FooterNote:     branding.FooterNote,

		InvoiceNumber: "INV-" + strconv.FormatInt(invoice.ID.Int64(), 10),
		IssueDate:     invoice.CreatedAt.Format(exportDateLayout),
		DueDate:       invoice.DueDate.Format(exportDateLayout),
		Status:        string(invoice.DisplayStatus(s.clock.Now())),

		BillToName: invoice.CustomerName,

		Items: lines,

		Total:       invoice.TotalAmount.StringFixed(2),
		Paid:        invoice.PaidAmount.StringFixed(2),
		Outstanding: invoice.Outstanding().StringFixed(2),
	}
}
