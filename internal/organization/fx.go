package organization

import (
	"github.com/essentialops/stockledger/internal/organization/repository"
	"github.com/essentialops/stockledger/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
