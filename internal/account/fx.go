package account

import (
	accountdomain "github.com/voxbilllabs/voxbill/internal/account/domain"
	"github.com/voxbilllabs/voxbill/internal/account/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("account",
	fx.Provide(func(db *gorm.DB) accountdomain.Repository {
		return repository.NewRepository(db)
	}),
)
