package report

import (
	"github.com/smallbiznis/faktur/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report",
	fx.Provide(service.NewService),
)
