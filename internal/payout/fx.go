package payout

import (
	"github.com/remitra/remitra/internal/payout/repository"
	"github.com/remitra/remitra/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout",
	fx.Provide(repository.Provide),
	fx.Provide(service.Provide),
)
