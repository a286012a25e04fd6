package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
)

const dueDateLayout = "2006-01-02"

type InvoiceItemBody struct {
	Description string          `json:"description"`
	Qty         int64           `json:"qty"`
	Price       decimal.Decimal `json:"price"`
}

type CreateInvoiceBody struct {
	CustomerID string            `json:"customer_id"`
	DueDate    string            `json:"due_date"`
	Items      []InvoiceItemBody `json:"items"`
}

type UpdateInvoiceBody struct {
	CustomerID *string           `json:"customer_id"`
	DueDate    *string           `json:"due_date"`
	Items      []InvoiceItemBody `json:"items"`
}

// invoiceView decorates the stored row with the derived display status
// and outstanding balance.
type invoiceView struct {
	invoicedomain.Invoice
	DisplayStatus     invoicedomain.InvoiceStatus `json:"display_status"`
	OutstandingAmount decimal.Decimal             `json:"outstanding_amount"`
}

func (s *Server) invoiceView(invoice invoicedomain.Invoice) invoiceView {
	return invoiceView{
		Invoice:           invoice,
		DisplayStatus:     invoice.DisplayStatus(s.clock.Now()),
		OutstandingAmount: invoice.Outstanding(),
	}
}

func (s *Server) invoiceViews(invoices []invoicedomain.Invoice) []invoiceView {
	views := make([]invoiceView, 0, len(invoices))
	for _, invoice := range invoices {
		views = append(views, s.invoiceView(invoice))
	}
	return views
}

func (s *Server) ListInvoices(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	req := invoicedomain.ListInvoiceRequest{}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := invoicedomain.InvoiceStatus(strings.ToUpper(raw))
		switch status {
		case invoicedomain.InvoiceStatusDraft,
			invoicedomain.InvoiceStatusSubmitted,
			invoicedomain.InvoiceStatusPaid,
			invoicedomain.InvoiceStatusOverdue:
			req.Status = &status
		default:
			AbortWithError(c, newValidationError("status", "Status filter is invalid."))
			return
		}
	}

	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		customerID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("customer_id", "Customer id is invalid."))
			return
		}
		req.CustomerID = &customerID
	}

	if raw := strings.TrimSpace(c.Query("customer_name")); raw != "" {
		req.CustomerName = &raw
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), identity, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.invoiceViews(invoices)})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body CreateInvoiceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(body.CustomerID))
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "Customer id is invalid."))
		return
	}

	dueDate, err := time.Parse(dueDateLayout, body.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "Due date must be an YYYY-MM-DD date."))
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), identity, invoicedomain.CreateInvoiceRequest{
		CustomerID: customerID,
		DueDate:    dueDate,
		Items:      toItemInputs(body.Items),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": s.invoiceView(*invoice)})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseInvoiceID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), identity, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.invoiceView(*invoice)})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseInvoiceID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body UpdateInvoiceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.UpdateInvoiceRequest{}

	if body.CustomerID != nil {
		customerID, err := snowflake.ParseString(strings.TrimSpace(*body.CustomerID))
		if err != nil {
			AbortWithError(c, newValidationError("customer_id", "Customer id is invalid."))
			return
		}
		req.CustomerID = &customerID
	}

	if body.DueDate != nil {
		dueDate, err := time.Parse(dueDateLayout, *body.DueDate)
		if err != nil {
			AbortWithError(c, newValidationError("due_date", "Due date must be an YYYY-MM-DD date."))
			return
		}
		req.DueDate = &dueDate
	}

	if body.Items != nil {
		req.Items = toItemInputs(body.Items)
	}

	invoice, err := s.invoiceSvc.Update(c.Request.Context(), identity, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.invoiceView(*invoice)})
}

func (s *Server) SubmitInvoice(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseInvoiceID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.Submit(c.Request.Context(), identity, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.invoiceView(*invoice)})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseInvoiceID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.invoiceSvc.Delete(c.Request.Context(), identity, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

func (s *Server) ExportInvoice(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseInvoiceID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.invoiceSvc.Export(c.Request.Context(), identity, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": s.invoiceView(result.Invoice),
		"url":  result.URL,
	})
}

func parseInvoiceID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return 0, newValidationError("id", "Invoice id is invalid.")
	}
	return id, nil
}

func toItemInputs(items []InvoiceItemBody) []invoicedomain.ItemInput {
	inputs := make([]invoicedomain.ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, invoicedomain.ItemInput{
			Description: item.Description,
			Qty:         item.Qty,
			Price:       item.Price,
		})
	}
	return inputs
}
