package domain

import (
	"context"
	"errors"
)

// CreateMerchantRequest registers a merchant profile for a user account.
type CreateMerchantRequest struct {
	UserID       string
	Type         MerchantType
	FullName     string
	Email        string
	Phone        string
	INN          string
	KPP          string
	OGRN         string
	LegalAddress string
}

// UpdateMerchantRequest enumerates exactly the mutable profile fields.
// Nil means "leave unchanged"; identity fields are not represented here
// and cannot be patched.
type UpdateMerchantRequest struct {
	Type         *MerchantType
	FullName     *string
	Email        *string
	Phone        *string
	INN          *string
	KPP          *string
	OGRN         *string
	LegalAddress *string
	LogoURL      *string

	BankName        *string
	BankBIC         *string
	BankAccount     *string
	BankCorrAccount *string

	IsActive *bool
}

type Service interface {
	Create(ctx context.Context, req CreateMerchantRequest) (Merchant, error)
	// Get returns the merchant resolved from the request context.
	Get(ctx context.Context) (Merchant, error)
	GetByUserID(ctx context.Context, userID string) (Merchant, error)
	Update(ctx context.Context, req UpdateMerchantRequest) (Merchant, error)
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidType     = errors.New("invalid_merchant_type")
	ErrNotFound        = errors.New("not_found")
	ErrAlreadyExists   = errors.New("merchant_already_exists")
)
