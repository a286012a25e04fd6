package pdf

import "context"

// Provider renders invoice documents to PDF bytes.
type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

// InvoiceData is the flattened, pre-formatted view rendered on the PDF.
type InvoiceData struct {
	CompanyName    string
	CompanyAddress string
	CompanyEmail   string
	BankDetails    string
	FooterNote     string

	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Status        string

	BillToName string

	Items []InvoiceLine

	Total       string
	Paid        string
	Outstanding string
}

type InvoiceLine struct {
	Description string
	Qty         int64
	UnitPrice   string
	Amount      string
}
