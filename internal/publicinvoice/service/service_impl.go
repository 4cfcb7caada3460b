package service

import (
	"context"
	"io"
	"strings"

	"github.com/fakturo/fakturo/internal/clock"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
	"github.com/fakturo/fakturo/internal/paymentcode"
	"github.com/fakturo/fakturo/internal/providers/pdf"
	"github.com/fakturo/fakturo/internal/publicinvoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Invoices  invoicedomain.Repository
	Merchants merchantdomain.Repository
	PDF       pdf.Provider
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	invoices  invoicedomain.Repository
	merchants merchantdomain.Repository
	pdf       pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("publicinvoice.service"),
		clock:     p.Clock,
		invoices:  p.Invoices,
		merchants: p.Merchants,
		pdf:       p.PDF,
	}
}

func (s *Service) View(ctx context.Context, token string) (*domain.PublicInvoiceView, error) {
	invoice, merchant, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	invoice, err = s.markViewed(ctx, invoice)
	if err != nil {
		return nil, err
	}

	view := &domain.PublicInvoiceView{
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        invoice.EffectiveStatus(s.clock.Now()),
		PayerName:     invoice.PayerName,
		PayerAddress:  invoice.PayerAddress,
		Description:   invoice.Description,
		Amount:        invoice.Amount,
		IssuedAt:      invoice.IssuedAt,
		DueDate:       invoice.DueDate,
		PaidAt:        invoice.PaidAt,
		PeriodStart:   invoice.PeriodStart,
		PeriodEnd:     invoice.PeriodEnd,
		Items:         invoice.Items,
		MerchantName:  merchant.FullName,
		MerchantINN:   merchant.INN,
	}

	if merchant.HasBankDetails() {
		payment, err := paymentcode.FromInvoice(*invoice, *merchant)
		if err == nil {
			view.PaymentCode = paymentcode.Build(payment)
			view.BankDetailsComplete = true
		}
	}
	return view, nil
}

func (s *Service) PaymentCodePNG(ctx context.Context, token string, size int) ([]byte, error) {
	invoice, merchant, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	payment, err := paymentcode.FromInvoice(*invoice, *merchant)
	if err != nil {
		return nil, domain.ErrPaymentCodeUnavailable
	}
	return paymentcode.EncodeQR(paymentcode.Build(payment), size)
}

func (s *Service) PDF(ctx context.Context, token string) (domain.InvoicePDF, error) {
	invoice, merchant, err := s.resolve(ctx, token)
	if err != nil {
		return domain.InvoicePDF{}, err
	}

	reader, err := s.pdf.GenerateInvoice(ctx, *invoice, *merchant)
	if err != nil {
		return domain.InvoicePDF{}, err
	}
	doc, err := io.ReadAll(reader)
	if err != nil {
		return domain.InvoicePDF{}, err
	}
	return domain.InvoicePDF{
		InvoiceNumber: invoice.InvoiceNumber,
		Document:      doc,
	}, nil
}

func (s *Service) resolve(ctx context.Context, token string) (*invoicedomain.Invoice, *merchantdomain.Merchant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, domain.ErrInvoiceUnavailable
	}

	invoice, err := s.invoices.FindByPublicToken(ctx, s.db, token)
	if err != nil {
		return nil, nil, err
	}
	// Drafts stay invisible behind the token until the merchant sends them.
	if invoice == nil || invoice.Status == invoicedomain.InvoiceStatusDraft {
		return nil, nil, domain.ErrInvoiceUnavailable
	}

	merchant, err := s.merchants.FindByID(ctx, s.db, invoice.MerchantID)
	if err != nil {
		return nil, nil, err
	}
	if merchant == nil {
		return nil, nil, domain.ErrInvoiceUnavailable
	}
	return invoice, merchant, nil
}

// markViewed fires the first-view transition. The conditional update only
// matches status sent, so concurrent first views commit at most one
// transition; everyone gets the post-transition row back.
func (s *Service) markViewed(ctx context.Context, invoice *invoicedomain.Invoice) (*invoicedomain.Invoice, error) {
	if invoice.Status != invoicedomain.InvoiceStatusSent {
		return invoice, nil
	}

	now := s.clock.Now().UTC()
	moved, err := s.invoices.TransitionStatus(ctx, s.db, invoice.ID,
		[]invoicedomain.InvoiceStatus{invoicedomain.InvoiceStatusSent},
		invoicedomain.InvoiceStatusViewed, nil, now)
	if err != nil {
		return nil, err
	}
	if moved {
		s.log.Info("invoice viewed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
		)
	}

	current, err := s.invoices.FindByID(ctx, s.db, invoice.MerchantID, invoice.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrInvoiceUnavailable
	}
	return current, nil
}
