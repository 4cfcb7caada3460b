package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/recurring/domain"
	"github.com/fakturo/fakturo/pkg/db/option"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, template *domain.Template) error {
	return db.WithContext(ctx).Create(template).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*domain.Template, error) {
	var template domain.Template
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, req domain.ListTemplateRequest, page pagination.Pagination) ([]*domain.Template, error) {
	var templates []*domain.Template
	stmt := db.WithContext(ctx).
		Model(&domain.Template{}).
		Where("merchant_id = ?", merchantID)
	if req.CustomerID != "" {
		stmt = stmt.Where("customer_id = ?", req.CustomerID)
	}
	if req.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, template *domain.Template) error {
	// Select("*") forces zero values through, e.g. deactivation and cleared
	// end dates, which Updates would otherwise skip.
	return db.WithContext(ctx).
		Model(template).
		Select("*").
		Omit("id", "merchant_id", "customer_id", "created_at").
		Updates(template).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Delete(&domain.Template{}).Error
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.Template, error) {
	var templates []*domain.Template
	err := db.WithContext(ctx).
		Model(&domain.Template{}).
		Where("is_active = ?", true).
		Where("next_generation_at IS NOT NULL AND next_generation_at <= ?", now).
		Where("ends_at IS NULL OR next_generation_at <= ends_at").
		Order("id").
		Limit(limit).
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *repo) ClaimByID(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (*domain.Template, error) {
	var templates []*domain.Template
	err := tx.WithContext(ctx).Raw(
		`SELECT *
		 FROM recurring_invoices
		 WHERE id = ?
		   AND is_active = ?
		   AND next_generation_at IS NOT NULL
		   AND next_generation_at <= ?
		 FOR UPDATE SKIP LOCKED`,
		id,
		true,
		now,
	).Scan(&templates).Error
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, nil
	}
	return templates[0], nil
}

func (r *repo) AdvanceSchedule(ctx context.Context, db *gorm.DB, id snowflake.ID, lastGeneratedAt time.Time, nextGenerationAt *time.Time, updatedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Template{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_generated_at":  lastGeneratedAt,
			"next_generation_at": nextGenerationAt,
			"updated_at":         updatedAt,
		}).Error
}
