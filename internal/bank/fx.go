package bank

import (
	"time"

	"github.com/remitra/remitra/internal/bank/clients"
	"github.com/remitra/remitra/internal/bank/domain"
	"go.uber.org/fx"
)

const simulatedLatency = 150 * time.Millisecond

var Module = fx.Module("bank",
	fx.Provide(NewProfileRegistry),
	fx.Provide(func() *clients.Registry {
		return clients.NewRegistry(
			clients.NewSimulatedClient(domain.BankHDFC, simulatedLatency),
			clients.NewSimulatedClient(domain.BankICICI, simulatedLatency),
			clients.NewSimulatedClient(domain.BankAxis, simulatedLatency),
		)
	}),
)
