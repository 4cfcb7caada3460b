package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, template *Template) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Template, error)
	List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, req ListTemplateRequest, page pagination.Pagination) ([]*Template, error)
	Update(ctx context.Context, db *gorm.DB, template *Template) error
	Delete(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) error

	// ListDue returns up to limit active templates whose next_generation_at
	// is at or before now, without locking. Candidates only; callers must
	// re-claim each row before generating.
	ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Template, error)
	// ClaimByID locks one due template for the caller's transaction. Returns
	// nil when the row is no longer due or another run holds it, so two
	// overlapping runs cannot double-generate from the same template.
	ClaimByID(ctx context.Context, tx *gorm.DB, id snowflake.ID, now time.Time) (*Template, error)
	// AdvanceSchedule writes the post-generation bookkeeping in one update.
	AdvanceSchedule(ctx context.Context, db *gorm.DB, id snowflake.ID, lastGeneratedAt time.Time, nextGenerationAt *time.Time, updatedAt time.Time) error
}
