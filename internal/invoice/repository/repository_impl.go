package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/pkg/db/option"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("public_token = ?", token).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("merchant_id = ?", merchantID)
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != "" {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) DashboardStats(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, now time.Time) (domain.DashboardStats, error) {
	pending := []domain.InvoiceStatus{domain.InvoiceStatusSent, domain.InvoiceStatusViewed}
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	endOfMonth := startOfMonth.AddDate(0, 1, 0)
	// An invoice due today is not overdue until the day has fully elapsed,
	// so the cutoff is the start of today.
	overdueCutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var stats domain.DashboardStats

	err := db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("merchant_id = ? AND status IN ?", merchantID, pending).
		Scan(&stats.Pending).Error
	if err != nil {
		return domain.DashboardStats{}, err
	}

	err = db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("merchant_id = ? AND status = ? AND paid_at >= ? AND paid_at < ?",
			merchantID, domain.InvoiceStatusPaid, startOfMonth, endOfMonth).
		Scan(&stats.Paid).Error
	if err != nil {
		return domain.DashboardStats{}, err
	}

	err = db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("merchant_id = ? AND status IN ? AND due_date IS NOT NULL AND due_date < ?",
			merchantID, pending, overdueCutoff).
		Scan(&stats.Overdue).Error
	if err != nil {
		return domain.DashboardStats{}, err
	}

	return stats, nil
}

// TransitionStatus is the only status write path. The WHERE guard on the
// current status makes concurrent transitions race-safe without in-process
// locks: at most one caller wins, losers see zero rows affected.
func (r *repo) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.InvoiceStatus, to domain.InvoiceStatus, paidAt *time.Time, updatedAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": updatedAt,
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}

	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
