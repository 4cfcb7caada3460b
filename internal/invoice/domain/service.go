package domain

import (
	"context"
	"errors"
	"time"

	"github.com/fakturo/fakturo/pkg/db/pagination"
)

// CreateInvoiceRequest issues an invoice manually. When Items are present the
// amount is validated against the summed line amounts; otherwise Amount is
// taken as supplied.
type CreateInvoiceRequest struct {
	CustomerID  string
	Amount      int64
	Description string
	DueDate     *time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Items       []InvoiceItem
}

type ListInvoiceRequest struct {
	PageToken  string
	PageSize   int32
	Status     *InvoiceStatus
	CustomerID string
}

type ListInvoiceFilter struct {
	Status     *InvoiceStatus
	CustomerID string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// DashboardStats aggregates invoice amounts for the merchant dashboard, in
// kopecks. Pending covers every sent or viewed invoice; Overdue is the
// past-due subset of those, derived by due date the same way
// EffectiveStatus derives it; Paid covers invoices paid in the current
// calendar month.
type DashboardStats struct {
	Pending int64 `json:"pending"`
	Paid    int64 `json:"paid"`
	Overdue int64 `json:"overdue"`
}

type DashboardResponse struct {
	Stats          DashboardStats `json:"stats"`
	RecentInvoices []Invoice      `json:"recent_invoices"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	// Dashboard returns aggregate amounts plus the most recent invoices.
	Dashboard(ctx context.Context) (DashboardResponse, error)
	// ApplyTransition moves the invoice through the state machine. Illegal
	// moves return *InvalidTransitionError.
	ApplyTransition(ctx context.Context, id string, target InvoiceStatus) (Invoice, error)
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidItems    = errors.New("invalid_items")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
