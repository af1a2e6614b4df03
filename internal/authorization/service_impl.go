package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectDevice          = "device"
	ObjectApplication     = "application"
	ObjectApplicationType = "application_type"
	ObjectAnalytics       = "analytics"
	ObjectOrganization    = "organization"
	ObjectCard            = "card"
)

const (
	ActionDeviceView       = "device.view"
	ActionDeviceCreate     = "device.create"
	ActionDeviceDeactivate = "device.deactivate"

	ActionApplicationView  = "application.view"
	ActionApplicationClose = "application.close"

	ActionApplicationTypeView   = "application_type.view"
	ActionApplicationTypeCreate = "application_type.create"

	ActionAnalyticsView = "analytics.view"

	ActionOrganizationView   = "organization.view"
	ActionOrganizationManage = "organization.manage"

	ActionCardProvision = "card.provision"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
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
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", subject),
			zap.String("org_id", orgID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "device:") {
		// Authenticated readers act under the system role; their org
		// scope was already pinned by credential lookup.
		deviceIDRaw := strings.TrimPrefix(actor, "device:")
		deviceID, err := snowflake.ParseString(deviceIDRaw)
		if err != nil || deviceID == 0 {
			return "", "", ErrInvalidActor
		}
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "account:") {
		accountIDRaw := strings.TrimPrefix(actor, "account:")
		accountID, err := snowflake.ParseString(accountIDRaw)
		if err != nil || accountID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return "", "", ErrInvalidOrganization
		}
		role, err := s.roleForAccount(ctx, parsedOrgID, accountID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForAccount(ctx context.Context, orgID snowflake.ID, accountID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND account_id = ?
		 LIMIT 1`,
		orgID,
		accountID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Members can read their org's dashboard surfaces.
		{"role:member", ObjectApplication, ActionApplicationView},
		{"role:member", ObjectApplicationType, ActionApplicationTypeView},
		{"role:member", ObjectDevice, ActionDeviceView},
		{"role:member", ObjectAnalytics, ActionAnalyticsView},
		{"role:member", ObjectOrganization, ActionOrganizationView},

		// Admins additionally manage devices, types, and applications.
		{"role:admin", ObjectApplication, ActionApplicationView},
		{"role:admin", ObjectApplication, ActionApplicationClose},
		{"role:admin", ObjectApplicationType, ActionApplicationTypeView},
		{"role:admin", ObjectApplicationType, ActionApplicationTypeCreate},
		{"role:admin", ObjectDevice, ActionDeviceView},
		{"role:admin", ObjectDevice, ActionDeviceCreate},
		{"role:admin", ObjectDevice, ActionDeviceDeactivate},
		{"role:admin", ObjectAnalytics, ActionAnalyticsView},
		{"role:admin", ObjectOrganization, ActionOrganizationView},

		// Owners hold the full admin surface plus org management.
		{"role:owner", ObjectApplication, ActionApplicationView},
		{"role:owner", ObjectApplication, ActionApplicationClose},
		{"role:owner", ObjectApplicationType, ActionApplicationTypeView},
		{"role:owner", ObjectApplicationType, ActionApplicationTypeCreate},
		{"role:owner", ObjectDevice, ActionDeviceView},
		{"role:owner", ObjectDevice, ActionDeviceCreate},
		{"role:owner", ObjectDevice, ActionDeviceDeactivate},
		{"role:owner", ObjectAnalytics, ActionAnalyticsView},
		{"role:owner", ObjectOrganization, ActionOrganizationView},
		{"role:owner", ObjectOrganization, ActionOrganizationManage},
		{"role:owner", ObjectCard, ActionCardProvision},

		// Reader devices and automated processes.
		{"role:system", ObjectCard, ActionCardProvision},
		{"role:system", ObjectApplication, ActionApplicationView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
