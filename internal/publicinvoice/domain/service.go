// Package domain defines the payer-facing invoice view: what a customer sees
// when they open the public invoice link, with no merchant session involved.
package domain

import (
	"context"
	"errors"
	"time"

	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
)

// PublicInvoiceView is the payer-facing projection of an invoice. Statuses
// shown here are effective statuses, so a past-due invoice reads overdue.
type PublicInvoiceView struct {
	InvoiceNumber string                      `json:"invoice_number"`
	Status        invoicedomain.InvoiceStatus `json:"status"`
	PayerName     string                      `json:"payer_name"`
	PayerAddress  string                      `json:"payer_address,omitempty"`
	Description   string                      `json:"description,omitempty"`
	Amount        int64                       `json:"amount"`
	IssuedAt      time.Time                   `json:"issued_at"`
	DueDate       *time.Time                  `json:"due_date,omitempty"`
	PaidAt        *time.Time                  `json:"paid_at,omitempty"`
	PeriodStart   *time.Time                  `json:"period_start,omitempty"`
	PeriodEnd     *time.Time                  `json:"period_end,omitempty"`
	Items         []invoicedomain.InvoiceItem `json:"items,omitempty"`

	MerchantName string `json:"merchant_name"`
	MerchantINN  string `json:"merchant_inn,omitempty"`

	// PaymentCode is empty when the merchant's banking details are
	// incomplete; BankDetailsComplete tells the consumer why.
	PaymentCode         string `json:"payment_code,omitempty"`
	BankDetailsComplete bool   `json:"bank_details_complete"`
}

// InvoicePDF is a rendered invoice document plus the number to name the
// download after.
type InvoicePDF struct {
	InvoiceNumber string
	Document      []byte
}

type Service interface {
	// View resolves an invoice by its public token and fires the one-time
	// sent to viewed transition. Drafts and unknown tokens are both
	// reported as unavailable so the token leaks nothing.
	View(ctx context.Context, token string) (*PublicInvoiceView, error)
	// PaymentCodePNG renders the invoice's payment code as a QR image.
	PaymentCodePNG(ctx context.Context, token string, size int) ([]byte, error)
	// PDF renders the printable invoice. Availability follows the same
	// rules as View, but no status transition fires.
	PDF(ctx context.Context, token string) (InvoicePDF, error)
}

var (
	ErrInvoiceUnavailable     = errors.New("invoice_unavailable")
	ErrPaymentCodeUnavailable = errors.New("payment_code_unavailable")
)
