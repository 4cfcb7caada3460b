package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	customerdomain "github.com/fakturo/fakturo/internal/customer/domain"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/internal/merchantctx"
	"github.com/fakturo/fakturo/internal/recurring/domain"
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
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	customers customerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("recurring.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTemplateRequest) (domain.Template, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.Template{}, domain.ErrInvalidMerchant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Template{}, domain.ErrInvalidName
	}
	// Templates mint invoices verbatim, so the amount/items invariant is
	// enforced here, not just at generation time.
	amount, err := invoicedomain.ResolveAmount(req.Amount, req.Items)
	if err != nil {
		return domain.Template{}, err
	}
	if req.DayOfMonth < 1 || req.DayOfMonth > domain.MaxDayOfMonth {
		return domain.Template{}, domain.ErrInvalidDayOfMonth
	}

	customerID, err := s.parseID(req.CustomerID)
	if err != nil {
		return domain.Template{}, domain.ErrInvalidCustomer
	}
	customer, err := s.customers.FindByID(ctx, s.db, merchantID, customerID)
	if err != nil {
		return domain.Template{}, err
	}
	if customer == nil {
		return domain.Template{}, domain.ErrInvalidCustomer
	}

	now := s.clock.Now().UTC()
	startsAt := now
	if req.StartsAt != nil && req.StartsAt.After(now) {
		startsAt = req.StartsAt.UTC()
	}
	next := domain.ComputeNextGeneration(req.DayOfMonth, startsAt)

	template := domain.Template{
		ID:               s.genID.Generate(),
		MerchantID:       merchantID,
		CustomerID:       customer.ID,
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		Amount:           amount,
		Interval:         domain.IntervalMonthly,
		DayOfMonth:       req.DayOfMonth,
		IsActive:         true,
		StartsAt:         startsAt,
		EndsAt:           req.EndsAt,
		NextGenerationAt: &next,
		Items:            req.Items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &template); err != nil {
		return domain.Template{}, err
	}

	s.log.Info("recurring template created",
		zap.String("template_id", template.ID.String()),
		zap.Int("day_of_month", template.DayOfMonth),
		zap.Time("next_generation_at", next),
	)
	return template, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Template, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.Template{}, domain.ErrInvalidMerchant
	}

	templateID, err := s.parseID(id)
	if err != nil {
		return domain.Template{}, err
	}

	template, err := s.repo.FindByID(ctx, s.db, merchantID, templateID)
	if err != nil {
		return domain.Template{}, err
	}
	if template == nil {
		return domain.Template{}, domain.ErrNotFound
	}
	return *template, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTemplateRequest) (domain.ListTemplateResponse, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.ListTemplateResponse{}, domain.ErrInvalidMerchant
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: int(pageSize)}

	rows, err := s.repo.List(ctx, s.db, merchantID, req, page)
	if err != nil {
		return domain.ListTemplateResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, pageSize, func(tpl *domain.Template) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        tpl.ID.String(),
			CreatedAt: tpl.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		rows = rows[:pageSize]
	}

	templates := make([]domain.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, *row)
	}
	return domain.ListTemplateResponse{PageInfo: pageInfo, Templates: templates}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateTemplateRequest) (domain.Template, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.Template{}, domain.ErrInvalidMerchant
	}

	templateID, err := s.parseID(id)
	if err != nil {
		return domain.Template{}, err
	}

	template, err := s.repo.FindByID(ctx, s.db, merchantID, templateID)
	if err != nil {
		return domain.Template{}, err
	}
	if template == nil {
		return domain.Template{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Template{}, domain.ErrInvalidName
		}
		template.Name = name
	}
	if req.Description != nil {
		template.Description = strings.TrimSpace(*req.Description)
	}
	if req.Amount != nil {
		template.Amount = *req.Amount
	}
	if req.DayOfMonth != nil {
		if *req.DayOfMonth < 1 || *req.DayOfMonth > domain.MaxDayOfMonth {
			return domain.Template{}, domain.ErrInvalidDayOfMonth
		}
		template.DayOfMonth = *req.DayOfMonth
		// A new anchor reschedules from now; past generations keep their
		// original cadence history.
		next := domain.ComputeNextGeneration(*req.DayOfMonth, s.clock.Now())
		template.NextGenerationAt = &next
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if req.EndsAt.Set {
		template.EndsAt = req.EndsAt.Value
	}
	if req.Items != nil {
		template.Items = *req.Items
	}

	amount, err := invoicedomain.ResolveAmount(template.Amount, template.Items)
	if err != nil {
		return domain.Template{}, err
	}
	template.Amount = amount
	template.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, template); err != nil {
		return domain.Template{}, err
	}
	return *template, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.ErrInvalidMerchant
	}

	templateID, err := s.parseID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, merchantID, templateID)
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
