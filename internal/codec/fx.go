package codec

import "go.uber.org/fx"

var Module = fx.Module("codec",
	fx.Provide(New),
)
