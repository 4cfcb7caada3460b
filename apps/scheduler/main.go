package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	"github.com/fakturo/fakturo/internal/config"
	"github.com/fakturo/fakturo/internal/customer"
	"github.com/fakturo/fakturo/internal/invoice"
	"github.com/fakturo/fakturo/internal/observability"
	"github.com/fakturo/fakturo/internal/recurring"
	"github.com/fakturo/fakturo/internal/scheduler"
	"github.com/fakturo/fakturo/pkg/db"
	"go.uber.org/fx"
)

// Dedicated recurring-invoice generator. Runs the same scheduler as the
// monolith but without the HTTP server, for deployments that want invoice
// generation isolated from request traffic.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		customer.Module,
		invoice.Module,
		recurring.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
