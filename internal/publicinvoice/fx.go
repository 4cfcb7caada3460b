package publicinvoice

import (
	"github.com/fakturo/fakturo/internal/publicinvoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("publicinvoice.service",
	fx.Provide(service.New),
)
