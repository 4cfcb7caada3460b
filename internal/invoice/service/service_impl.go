package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	customerdomain "github.com/fakturo/fakturo/internal/customer/domain"
	"github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/internal/invoice/numbering"
	"github.com/fakturo/fakturo/internal/merchantctx"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Customers customerdomain.Repository
	Numbering numbering.Generator
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	customers customerdomain.Repository
	numbering numbering.Generator
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
		numbering: p.Numbering,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.Invoice{}, domain.ErrInvalidMerchant
	}

	customerID, err := s.parseID(req.CustomerID)
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidCustomer
	}
	customer, err := s.customers.FindByID(ctx, s.db, merchantID, customerID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if customer == nil {
		return domain.Invoice{}, domain.ErrInvalidCustomer
	}

	amount, err := domain.ResolveAmount(req.Amount, req.Items)
	if err != nil {
		return domain.Invoice{}, err
	}

	token, err := domain.NewPublicToken()
	if err != nil {
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	invoice := domain.Invoice{
		ID:           s.genID.Generate(),
		MerchantID:   merchantID,
		CustomerID:   customer.ID,
		PublicToken:  token,
		PayerName:    customer.FullName,
		PayerAddress: customer.LegalAddress,
		Amount:       amount,
		Description:  strings.TrimSpace(req.Description),
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		Status:       domain.InvoiceStatusDraft,
		IssuedAt:     now,
		DueDate:      req.DueDate,
		Items:        req.Items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Number allocation and insert commit together so a failed insert never
	// burns a sequence value into a visible gap on its own.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.numbering.Next(ctx, tx, merchantID, now)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		return s.repo.Insert(ctx, tx, &invoice)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int64("amount", invoice.Amount),
	)
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.Invoice{}, domain.ErrInvalidMerchant
	}

	invoiceID, err := s.parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, merchantID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidMerchant
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListInvoiceFilter{
		Status:     req.Status,
		CustomerID: req.CustomerID,
	}
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: int(pageSize)}

	rows, err := s.repo.List(ctx, s.db, merchantID, filter, page)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, pageSize, func(inv *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		rows = rows[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, *row)
	}

	return domain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

const dashboardRecentLimit = 10

func (s *Service) Dashboard(ctx context.Context) (domain.DashboardResponse, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.DashboardResponse{}, domain.ErrInvalidMerchant
	}

	now := s.clock.Now().UTC()
	stats, err := s.repo.DashboardStats(ctx, s.db, merchantID, now)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	rows, err := s.repo.List(ctx, s.db, merchantID, domain.ListInvoiceFilter{},
		pagination.Pagination{PageSize: dashboardRecentLimit})
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	if len(rows) > dashboardRecentLimit {
		rows = rows[:dashboardRecentLimit]
	}

	recent := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		recent = append(recent, *row)
	}

	return domain.DashboardResponse{Stats: stats, RecentInvoices: recent}, nil
}

// ApplyTransition is the single entry point for status changes. The write is
// a compare-and-set over every legal source of the target status, so two
// racing callers cannot double-apply a move. When the set misses, the invoice
// is refetched: already at target means the race was benign and the call is
// idempotent, anything else is an illegal transition.
func (s *Service) ApplyTransition(ctx context.Context, id string, target domain.InvoiceStatus) (domain.Invoice, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.Invoice{}, domain.ErrInvalidMerchant
	}

	invoiceID, err := s.parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, merchantID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	if invoice.Status == target {
		return *invoice, nil
	}
	if err := domain.CanTransition(invoice.Status, target); err != nil {
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	var paidAt *time.Time
	if target == domain.InvoiceStatusPaid {
		paidAt = &now
	}

	sources := domain.TransitionSources(target)
	moved, err := s.repo.TransitionStatus(ctx, s.db, invoice.ID, sources, target, paidAt, now)
	if err != nil {
		return domain.Invoice{}, err
	}
	if !moved {
		current, err := s.repo.FindByID(ctx, s.db, merchantID, invoiceID)
		if err != nil {
			return domain.Invoice{}, err
		}
		if current == nil {
			return domain.Invoice{}, domain.ErrNotFound
		}
		if current.Status == target {
			return *current, nil
		}
		return domain.Invoice{}, &domain.InvalidTransitionError{From: current.Status, To: target}
	}

	current, err := s.repo.FindByID(ctx, s.db, merchantID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if current == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	s.log.Info("invoice transitioned",
		zap.String("invoice_id", current.ID.String()),
		zap.String("from", string(invoice.Status)),
		zap.String("to", string(current.Status)),
	)
	return *current, nil
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
