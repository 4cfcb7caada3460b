// Package domain holds the recurring invoice template model and the calendar
// schedule arithmetic behind recurring generation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"gorm.io/datatypes"
)

// Interval is the generation cadence. Monthly is the only supported value.
type Interval string

const IntervalMonthly Interval = "monthly"

// Template is a per-customer subscription definition the scheduler
// materializes invoices from. DayOfMonth is capped at 28 so the monthly
// rollover is always well defined. NextGenerationAt is nil once the template
// has run past its end date and is no longer scheduled.
type Template struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index" json:"merchant_id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Amount   int64    `gorm:"not null" json:"amount"`
	Interval Interval `gorm:"type:text;not null;default:'monthly'" json:"interval"`

	DayOfMonth int  `gorm:"not null" json:"day_of_month"`
	IsActive   bool `gorm:"not null;default:true" json:"is_active"`

	StartsAt time.Time  `gorm:"not null" json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	LastGeneratedAt  *time.Time `json:"last_generated_at,omitempty"`
	NextGenerationAt *time.Time `gorm:"index" json:"next_generation_at,omitempty"`

	Items datatypes.JSONSlice[invoicedomain.InvoiceItem] `gorm:"type:jsonb" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Template) TableName() string { return "recurring_invoices" }
