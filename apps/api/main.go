package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/remitra/remitra/internal/bank"
	"github.com/remitra/remitra/internal/bank/router"
	"github.com/remitra/remitra/internal/clock"
	"github.com/remitra/remitra/internal/codec"
	"github.com/remitra/remitra/internal/config"
	"github.com/remitra/remitra/internal/logger"
	"github.com/remitra/remitra/internal/merchant"
	"github.com/remitra/remitra/internal/metrics"
	"github.com/remitra/remitra/internal/migration"
	"github.com/remitra/remitra/internal/notifier"
	"github.com/remitra/remitra/internal/payout"
	"github.com/remitra/remitra/internal/server"
	"github.com/remitra/remitra/internal/webhook"
	"github.com/remitra/remitra/pkg/db"
	"go.uber.org/fx"
)

// API only: payout CRUD and inbound bank webhooks. Dispatch runs in
// the scheduler app.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		codec.Module,
		bank.Module,
		router.Module,
		merchant.Module,
		payout.Module,
		webhook.Module,
		notifier.Module,

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
