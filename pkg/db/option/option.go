// Package option provides composable gorm query modifiers.
package option

import (
	"strconv"
	"time"

	"github.com/fakturo/fakturo/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type queryOptionFunc func(stmt *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// WithLimit caps the number of returned rows.
func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if limit > 0 {
			return stmt.Limit(limit)
		}
		return stmt
	})
}

// ApplyPagination applies cursor pagination. One extra row beyond the page
// size is fetched so callers can detect whether more pages exist.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 50
		}
		stmt = stmt.Limit(size + 1)

		if page.PageToken == "" {
			return stmt
		}
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil || cursor == nil {
			return stmt
		}
		if cursor.CreatedAt == "" || cursor.ID == "" {
			return stmt
		}
		// The cursor carries typed values so the comparison goes through
		// the driver's own time and integer encoding; a raw string compare
		// against a timestamp column is driver-dependent.
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return stmt
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return stmt
		}
		return stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			createdAt, createdAt, id,
		)
	})
}
