package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotient/internal/clock"
	"github.com/smallbiznis/quotient/internal/config"
	"github.com/smallbiznis/quotient/internal/logger"
	"github.com/smallbiznis/quotient/internal/migration"
	"github.com/smallbiznis/quotient/internal/observability/metrics"
	"github.com/smallbiznis/quotient/internal/server"
	"github.com/smallbiznis/quotient/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		fx.Provide(config.Load),
		fx.Provide(config.NewEngineConfigHolder),
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain modules and HTTP surface
		server.Module,
		migration.Module,
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
