// Package authorization enforces the role matrix: admins manage invoices,
// users may only view, pay, and export invoices they own. Ownership itself
// is checked by the domain services; this gate covers the role dimension.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectInvoice = "invoice"
	ObjectPayment = "payment"
	ObjectReport  = "report"
	ObjectUser    = "user"
)

const (
	ActionInvoiceView   = "invoice.view"
	ActionInvoiceCreate = "invoice.create"
	ActionInvoiceUpdate = "invoice.update"
	ActionInvoiceSubmit = "invoice.submit"
	ActionInvoiceDelete = "invoice.delete"
	ActionInvoiceExport = "invoice.export"

	ActionPaymentView   = "payment.view"
	ActionPaymentCreate = "payment.create"

	ActionReportView = "report.view"

	ActionUserView   = "user.view"
	ActionUserCreate = "user.create"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, role userdomain.Role, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role userdomain.Role, object string, action string) error {
	_ = ctx

	if !role.Valid() {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("role:%s", role)
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	adminActions := map[string][]string{
		ObjectInvoice: {
			ActionInvoiceView, ActionInvoiceCreate, ActionInvoiceUpdate,
			ActionInvoiceSubmit, ActionInvoiceDelete, ActionInvoiceExport,
		},
		ObjectPayment: {ActionPaymentView, ActionPaymentCreate},
		ObjectReport:  {ActionReportView},
		ObjectUser:    {ActionUserView, ActionUserCreate},
	}
	userActions := map[string][]string{
		ObjectInvoice: {ActionInvoiceView, ActionInvoiceExport},
		ObjectPayment: {ActionPaymentView, ActionPaymentCreate},
		ObjectReport:  {ActionReportView},
	}

	for object, actions := range adminActions {
		for _, action := range actions {
			if _, err := enforcer.AddPolicy("role:admin", object, action); err != nil {
				return err
			}
		}
	}
	for object, actions := range userActions {
		for _, action := range actions {
			if _, err := enforcer.AddPolicy("role:user", object, action); err != nil {
				return err
			}
		}
	}
	return nil
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
