package providers

import (
	"github.com/fakturo/fakturo/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
)
