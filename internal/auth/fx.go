package auth

import (
	"github.com/smallbiznis/faktur/internal/auth/service"
	"github.com/smallbiznis/faktur/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(token.NewIssuer),
	fx.Provide(service.NewService),
)
