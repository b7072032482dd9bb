package recordversion

import (
	"github.com/essentialops/stockledger/internal/recordversion/repository"
	"github.com/essentialops/stockledger/internal/recordversion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recordversion.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
