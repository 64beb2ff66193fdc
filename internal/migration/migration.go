// Package migration creates and upgrades the database schema. It must be run
// explicitly by the migrator entrypoint before serving traffic.
package migration

import (
	"errors"

	"gorm.io/gorm"

	accountdomain "github.com/voxbilllabs/voxbill/internal/account/domain"
	invoicedomain "github.com/voxbilllabs/voxbill/internal/invoice/domain"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

// RunMigrations brings the schema up to date for every domain model.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	return db.AutoMigrate(
		&ratecarddomain.BaseRate{},
		&tariffdomain.Plan{},
		&accountdomain.Account{},
		&ledgerdomain.Wallet{},
		&ledgerdomain.Transaction{},
		&ratingdomain.UsageRecord{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
	)
}
