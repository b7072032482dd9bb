package item

import (
	"github.com/essentialops/stockledger/internal/item/repository"
	"github.com/essentialops/stockledger/internal/item/service"
	"go.uber.org/fx"
)

var Module = fx.Module("item.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
