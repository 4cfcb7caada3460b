// Package domain contains the invoice model, its lifecycle state machine and
// the service/repository contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	// InvoiceStatusOverdue is derived at read time from the due date and is
	// never persisted in the status column.
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
)

// InvoiceItem is one line of an itemized invoice. All monetary values are in
// kopecks. Amount must equal Quantity×Price; creators validate this, the
// storage model does not.
type InvoiceItem struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Amount   int64  `json:"amount"`
}

// Invoice is the central billing entity. Payer name and address are
// snapshotted at creation time so historical invoices stay stable when the
// customer record changes later.
type Invoice struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_invoice_merchant_number" json:"merchant_id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`

	InvoiceNumber string `gorm:"not null;uniqueIndex:ux_invoice_merchant_number" json:"invoice_number"`
	PublicToken   string `gorm:"not null;uniqueIndex" json:"public_token"`

	PayerName    string `gorm:"not null" json:"payer_name"`
	PayerAddress string `json:"payer_address,omitempty"`

	Amount      int64  `gorm:"not null" json:"amount"`
	Description string `gorm:"type:text" json:"description"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	Status   InvoiceStatus `gorm:"type:text;not null;default:'draft'" json:"status"`
	IssuedAt time.Time     `gorm:"not null" json:"issued_at"`
	DueDate  *time.Time    `json:"due_date,omitempty"`
	PaidAt   *time.Time    `json:"paid_at,omitempty"`

	Items datatypes.JSONSlice[InvoiceItem] `gorm:"type:jsonb" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// EffectiveStatus reports what consumers should display: sent/viewed invoices
// past their due date are overdue. The stored status is untouched.
func (i Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.DueDate == nil {
		return i.Status
	}
	if i.Status != InvoiceStatusSent && i.Status != InvoiceStatusViewed {
		return i.Status
	}
	if endOfDay(*i.DueDate).Before(now) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// Due dates are calendar dates; an invoice turns overdue only after the due
// day has fully elapsed.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, t.Location())
}
