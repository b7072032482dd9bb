package location

import (
	"github.com/essentialops/stockledger/internal/location/repository"
	"github.com/essentialops/stockledger/internal/location/service"
	"go.uber.org/fx"
)

var Module = fx.Module("location.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
