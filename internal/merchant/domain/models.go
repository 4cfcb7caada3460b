// Package domain contains the merchant profile model and contracts.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// MerchantType distinguishes the legal form of the issuer.
type MerchantType string

const (
	MerchantTypeIndividual   MerchantType = "individual"
	MerchantTypeSelfEmployed MerchantType = "self_employed"
	MerchantTypeCompany      MerchantType = "company"
)

// Merchant is the issuer of invoices. Owned by exactly one user account;
// identity (ID, UserID) is immutable after creation.
type Merchant struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID string       `gorm:"not null;uniqueIndex" json:"user_id"`
	Type   MerchantType `gorm:"type:text;not null" json:"merchant_type"`

	FullName     string `gorm:"not null" json:"full_name"`
	Slug         string `gorm:"not null;index" json:"slug"`
	Email        string `gorm:"not null" json:"email"`
	Phone        string `json:"phone,omitempty"`
	INN          string `gorm:"column:inn" json:"inn,omitempty"`
	KPP          string `gorm:"column:kpp" json:"kpp,omitempty"`
	OGRN         string `gorm:"column:ogrn" json:"ogrn,omitempty"`
	LegalAddress string `json:"legal_address,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`

	BankName        string `json:"bank_name,omitempty"`
	BankBIC         string `gorm:"column:bank_bic" json:"bank_bic,omitempty"`
	BankAccount     string `json:"bank_account,omitempty"`
	BankCorrAccount string `json:"bank_corr_account,omitempty"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Merchant) TableName() string { return "merchants" }

// HasBankDetails reports whether all banking fields required for payment code
// generation are present. Each field is optional on its own but co-required
// for the payment path.
func (m Merchant) HasBankDetails() bool {
	return strings.TrimSpace(m.BankAccount) != "" &&
		strings.TrimSpace(m.BankName) != "" &&
		strings.TrimSpace(m.BankBIC) != "" &&
		strings.TrimSpace(m.BankCorrAccount) != ""
}
