package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/faktur/internal/payment/domain"
)

type CreatePaymentBody struct {
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body CreatePaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoiceID, err := snowflake.ParseString(strings.TrimSpace(body.InvoiceID))
	if err != nil {
		AbortWithError(c, newValidationError("invoice_id", "Invoice id is invalid."))
		return
	}

	payment, err := s.paymentSvc.Apply(c.Request.Context(), identity, paymentdomain.ApplyPaymentRequest{
		InvoiceID: invoiceID,
		Amount:    body.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), identity, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    payment,
		"invoice": s.invoiceView(*invoice),
	})
}

func (s *Server) ListPayments(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	req := paymentdomain.ListPaymentRequest{}

	if raw := strings.TrimSpace(c.Query("invoice_id")); raw != "" {
		invoiceID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("invoice_id", "Invoice id is invalid."))
			return
		}
		req.InvoiceID = &invoiceID
	}

	payments, err := s.paymentSvc.List(c.Request.Context(), identity, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}
