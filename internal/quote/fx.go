package quote

import (
	"github.com/smallbiznis/quotient/internal/quote/repository"
	"github.com/smallbiznis/quotient/internal/quote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quote",
	fx.Provide(
		repository.Provide,
		service.NewAggregator,
		service.New,
	),
)
