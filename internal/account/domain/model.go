// Package domain contains the account records the engine consumes. Account
// CRUD and authentication live outside this engine; rating only needs the
// tariff assignment and the tax residency fields.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Account struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	CountryCode  string       `gorm:"type:text;not null" json:"country_code"`
	TaxID        string       `gorm:"type:text" json:"tax_id"`
	TariffPlanID snowflake.ID `gorm:"not null;index" json:"tariff_plan_id"`
	Suspended    bool         `gorm:"not null;default:false" json:"suspended"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (Account) TableName() string { return "accounts" }

var ErrAccountNotFound = errors.New("account_not_found")
