package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	"github.com/fakturo/fakturo/internal/merchant/domain"
	"github.com/fakturo/fakturo/internal/merchantctx"
	"github.com/fakturo/fakturo/pkg/db"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("merchant.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateMerchantRequest) (domain.Merchant, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.Merchant{}, domain.ErrInvalidMerchant
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return domain.Merchant{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Merchant{}, domain.ErrInvalidEmail
	}

	switch req.Type {
	case domain.MerchantTypeIndividual, domain.MerchantTypeSelfEmployed, domain.MerchantTypeCompany:
	default:
		return domain.Merchant{}, domain.ErrInvalidType
	}

	now := s.clock.Now().UTC()
	merchant := domain.Merchant{
		ID:           s.genID.Generate(),
		UserID:       userID,
		Type:         req.Type,
		FullName:     name,
		Slug:         slug.Make(name),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		INN:          strings.TrimSpace(req.INN),
		KPP:          strings.TrimSpace(req.KPP),
		OGRN:         strings.TrimSpace(req.OGRN),
		LegalAddress: strings.TrimSpace(req.LegalAddress),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &merchant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Merchant{}, domain.ErrAlreadyExists
		}
		return domain.Merchant{}, err
	}

	return merchant, nil
}

func (s *Service) Get(ctx context.Context) (domain.Merchant, error) {
	merchantID, ok := merchantctx.MerchantIDFromContext(ctx)
	if !ok || merchantID == 0 {
		return domain.Merchant{}, domain.ErrInvalidMerchant
	}

	merchant, err := s.repo.FindByID(ctx, s.db, merchantID)
	if err != nil {
		return domain.Merchant{}, err
	}
	if merchant == nil {
		return domain.Merchant{}, domain.ErrNotFound
	}
	return *merchant, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID string) (domain.Merchant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Merchant{}, domain.ErrInvalidMerchant
	}

	merchant, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return domain.Merchant{}, err
	}
	if merchant == nil {
		return domain.Merchant{}, domain.ErrNotFound
	}
	return *merchant, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateMerchantRequest) (domain.Merchant, error) {
	merchant, err := s.Get(ctx)
	if err != nil {
		return domain.Merchant{}, err
	}

	if req.Type != nil {
		switch *req.Type {
		case domain.MerchantTypeIndividual, domain.MerchantTypeSelfEmployed, domain.MerchantTypeCompany:
			merchant.Type = *req.Type
		default:
			return domain.Merchant{}, domain.ErrInvalidType
		}
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return domain.Merchant{}, domain.ErrInvalidName
		}
		merchant.FullName = name
		merchant.Slug = slug.Make(name)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" || !strings.Contains(email, "@") {
			return domain.Merchant{}, domain.ErrInvalidEmail
		}
		merchant.Email = email
	}
	applyString(&merchant.Phone, req.Phone)
	applyString(&merchant.INN, req.INN)
	applyString(&merchant.KPP, req.KPP)
	applyString(&merchant.OGRN, req.OGRN)
	applyString(&merchant.LegalAddress, req.LegalAddress)
	applyString(&merchant.LogoURL, req.LogoURL)
	applyString(&merchant.BankName, req.BankName)
	applyString(&merchant.BankBIC, req.BankBIC)
	applyString(&merchant.BankAccount, req.BankAccount)
	applyString(&merchant.BankCorrAccount, req.BankCorrAccount)
	if req.IsActive != nil {
		merchant.IsActive = *req.IsActive
	}

	merchant.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &merchant); err != nil {
		return domain.Merchant{}, err
	}

	return merchant, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
