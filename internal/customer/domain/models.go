package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is the payer counterpart of a merchant's invoices. Only the name
// is required; contact and tax fields are optional.
type Customer struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index" json:"merchant_id"`

	FullName     string `gorm:"not null" json:"full_name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	INN          string `gorm:"column:inn" json:"inn,omitempty"`
	KPP          string `gorm:"column:kpp" json:"kpp,omitempty"`
	OGRN         string `gorm:"column:ogrn" json:"ogrn,omitempty"`
	LegalAddress string `json:"legal_address,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
