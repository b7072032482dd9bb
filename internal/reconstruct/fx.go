package reconstruct

import (
	"github.com/essentialops/stockledger/internal/reconstruct/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconstruct.service",
	fx.Provide(service.NewService),
)
