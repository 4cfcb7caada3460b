package merchant

import (
	"github.com/fakturo/fakturo/internal/merchant/repository"
	"github.com/fakturo/fakturo/internal/merchant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
