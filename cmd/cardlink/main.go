package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/clock"
	"github.com/cardlinkhq/cardlink/internal/config"
	"github.com/cardlinkhq/cardlink/internal/migration"
	"github.com/cardlinkhq/cardlink/internal/observability"
	"github.com/cardlinkhq/cardlink/internal/scheduler"
	"github.com/cardlinkhq/cardlink/internal/server"
	"github.com/cardlinkhq/cardlink/pkg/db"
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
		server.Module,
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
