package router

import "go.uber.org/fx"

var Module = fx.Module("bank.router",
	fx.Provide(New),
)
