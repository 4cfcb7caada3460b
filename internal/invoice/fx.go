package invoice

import (
	"github.com/fakturo/fakturo/internal/invoice/numbering"
	"github.com/fakturo/fakturo/internal/invoice/repository"
	"github.com/fakturo/fakturo/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	numbering.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
