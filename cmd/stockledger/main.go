package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/clock"
	"github.com/essentialops/stockledger/internal/config"
	"github.com/essentialops/stockledger/internal/distlock"
	"github.com/essentialops/stockledger/internal/migration"
	"github.com/essentialops/stockledger/internal/server"
	"github.com/essentialops/stockledger/pkg/db"
	"github.com/essentialops/stockledger/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		distlock.Module,
		migration.Module,
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
