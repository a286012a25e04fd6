package payment

import (
	"github.com/smallbiznis/faktur/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(service.NewService),
)
