package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/pkg/db/pagination"
)

type CreateTemplateRequest struct {
	CustomerID  string
	Name        string
	Description string
	Amount      int64
	DayOfMonth  int
	StartsAt    *time.Time
	EndsAt      *time.Time
	Items       []invoicedomain.InvoiceItem
}

// OptionalTime is a tri-state update value: a field left out of the request
// body stays unchanged, an explicit null clears it, and a timestamp replaces
// it. A plain *time.Time cannot tell the first two apart.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// UpdateTemplateRequest enumerates the mutable template fields. Nil means
// "leave unchanged"; schedule bookkeeping fields are scheduler-owned and
// deliberately absent.
type UpdateTemplateRequest struct {
	Name        *string
	Description *string
	Amount      *int64
	DayOfMonth  *int
	IsActive    *bool
	EndsAt      OptionalTime
	Items       *[]invoicedomain.InvoiceItem
}

type ListTemplateRequest struct {
	PageToken  string
	PageSize   int32
	CustomerID string
	ActiveOnly bool
}

type ListTemplateResponse struct {
	pagination.PageInfo
	Templates []Template `json:"recurring_invoices"`
}

type Service interface {
	Create(ctx context.Context, req CreateTemplateRequest) (Template, error)
	GetByID(ctx context.Context, id string) (Template, error)
	List(ctx context.Context, req ListTemplateRequest) (ListTemplateResponse, error)
	Update(ctx context.Context, id string, req UpdateTemplateRequest) (Template, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidMerchant   = errors.New("invalid_merchant")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidDayOfMonth = errors.New("invalid_day_of_month")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)
