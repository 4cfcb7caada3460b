package customer

import (
	"github.com/fakturo/fakturo/internal/customer/repository"
	"github.com/fakturo/fakturo/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
