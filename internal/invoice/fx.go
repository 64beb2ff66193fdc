package invoice

import (
	"github.com/voxbilllabs/voxbill/internal/invoice/service"
	"github.com/voxbilllabs/voxbill/internal/tax"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	tax.Module,
	fx.Provide(service.NewService),
)
