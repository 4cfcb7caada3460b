package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	"github.com/fakturo/fakturo/internal/config"
	"github.com/fakturo/fakturo/internal/migration"
	"github.com/fakturo/fakturo/internal/observability"
	"github.com/fakturo/fakturo/internal/server"
	"github.com/fakturo/fakturo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// server.Module pulls in every domain module and, when enabled,
		// the in-process recurring scheduler.
		server.Module,
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
