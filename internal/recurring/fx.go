package recurring

import (
	"github.com/fakturo/fakturo/internal/recurring/repository"
	"github.com/fakturo/fakturo/internal/recurring/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recurring.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
