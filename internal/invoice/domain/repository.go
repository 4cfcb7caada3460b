package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Invoice, error)
	FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	// DashboardStats sums amounts by dashboard bucket as of now: the paid
	// window is now's calendar month, the overdue cutoff is now's date.
	DashboardStats(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, now time.Time) (DashboardStats, error)
	// TransitionStatus conditionally moves the invoice from one of the given
	// source statuses to target (compare-and-set on the status column).
	// Returns false when no row matched, i.e. the invoice was already past
	// the guard set. paidAt is written only when non-nil.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []InvoiceStatus, to InvoiceStatus, paidAt *time.Time, updatedAt time.Time) (bool, error)
}
