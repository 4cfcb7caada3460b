package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	Delete(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) error
}
