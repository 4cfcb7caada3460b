// Package pdf renders invoice documents with maroto.
package pdf

import (
	"context"
	"io"

	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
)

type Provider interface {
	// GenerateInvoice lays out the printable счёт. The payment QR block is
	// included only when the merchant's bank details are complete.
	GenerateInvoice(ctx context.Context, invoice invoicedomain.Invoice, merchant merchantdomain.Merchant) (io.Reader, error)
}
