// Package domain contains invoice models and the period aggregation
// contracts.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice aggregates one account's rated usage over a billing period.
// It exclusively owns its line items: they are created and deleted with it.
type Invoice struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	AccountID   snowflake.ID    `gorm:"not null;index" json:"account_id"`
	PeriodStart time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time       `gorm:"not null" json:"period_end"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_amount"`
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	Status      InvoiceStatus   `gorm:"type:text;not null;index" json:"status"`
	IssueDate   time.Time       `gorm:"not null" json:"issue_date"`
	DueDate     time.Time       `gorm:"not null;index" json:"due_date"`
	PaidDate    *time.Time      `json:"paid_date,omitempty"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`
}

func (Invoice) TableName() string { return "invoices" }

// LineItem is one destination's aggregated usage on an invoice. UnitPrice is
// derived for display; the authoritative figure is Total, the sum of the
// already-rounded per-usage costs.
type LineItem struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID       snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	QuantityMinutes decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity_minutes"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"unit_price"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
}

func (LineItem) TableName() string { return "invoice_line_items" }

var (
	ErrInvoiceNotFound          = errors.New("invoice_not_found")
	ErrInvalidInvoicePeriod     = errors.New("invalid_invoice_period")
	ErrInvalidInvoiceTransition = errors.New("invalid_invoice_transition")
)
