package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, merchant *Merchant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Merchant, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Merchant, error)
	Update(ctx context.Context, db *gorm.DB, merchant *Merchant) error
}
