package domain

import (
	"context"
	"errors"
	"time"

	"github.com/fakturo/fakturo/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	FullName     string
	Email        string
	Phone        string
	INN          string
	KPP          string
	OGRN         string
	LegalAddress string
}

// UpdateCustomerRequest enumerates exactly the mutable customer fields.
// Nil means "leave unchanged".
type UpdateCustomerRequest struct {
	ID string

	FullName     *string
	Email        *string
	Phone        *string
	INN          *string
	KPP          *string
	OGRN         *string
	LegalAddress *string
}

type ListCustomerRequest struct {
	PageToken   string
	PageSize    int32
	Name        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Name        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	Update(ctx context.Context, req UpdateCustomerRequest) (Customer, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
