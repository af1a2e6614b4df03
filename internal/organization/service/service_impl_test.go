package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/cardlinkhq/cardlink/internal/organization/domain"
	"github.com/cardlinkhq/cardlink/internal/organization/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, domain.Repository, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Organization{}, &domain.Member{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	return NewService(zap.NewNop(), db, repo, node), repo, node
}

func TestCreateOrganizationAssignsOwner(t *testing.T) {
	svc, _, node := newTestService(t)
	owner := node.Generate()

	resp, err := svc.Create(context.Background(), owner, domain.CreateOrganizationRequest{
		Name:  "Acme Talent GmbH",
		Email: "jobs@acme.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-talent-gmbh", resp.Slug)
	assert.Equal(t, domain.RoleOwner, resp.Role)

	got, err := svc.GetBySlug(context.Background(), owner, resp.Slug)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assert.Equal(t, domain.RoleOwner, got.Role)
}

func TestGetBySlugRequiresMembership(t *testing.T) {
	svc, _, node := newTestService(t)
	owner := node.Generate()
	stranger := node.Generate()

	resp, err := svc.Create(context.Background(), owner, domain.CreateOrganizationRequest{Name: "Lonely Org"})
	require.NoError(t, err)

	_, err = svc.GetBySlug(context.Background(), stranger, resp.Slug)
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	_, err = svc.GetBySlug(context.Background(), owner, "missing-org")
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
}

func TestRequireAccessRoleRanks(t *testing.T) {
	svc, repo, node := newTestService(t)
	owner := node.Generate()
	admin := node.Generate()
	member := node.Generate()

	resp, err := svc.Create(context.Background(), owner, domain.CreateOrganizationRequest{Name: "Ranked Org"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	require.NoError(t, repo.AddMember(context.Background(), domain.Member{
		ID: node.Generate(), OrgID: orgID, AccountID: admin, Role: domain.RoleAdmin,
	}))
	require.NoError(t, repo.AddMember(context.Background(), domain.Member{
		ID: node.Generate(), OrgID: orgID, AccountID: member, Role: domain.RoleMember,
	}))

	// An owner passes every gate including admin-only ones.
	role, err := svc.RequireAccess(context.Background(), orgID, owner, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, role)

	role, err = svc.RequireAccess(context.Background(), orgID, admin, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)

	// A member fails an admin gate but passes the member gate.
	_, err = svc.RequireAccess(context.Background(), orgID, member, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)

	_, err = svc.RequireAccess(context.Background(), orgID, member, domain.RoleMember)
	assert.NoError(t, err)

	// Non-members are distinguished from low-ranked members.
	_, err = svc.RequireAccess(context.Background(), orgID, node.Generate(), domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestRoleAtLeastUnknownRole(t *testing.T) {
	assert.False(t, domain.RoleAtLeast("superuser", domain.RoleMember))
	assert.False(t, domain.RoleAtLeast(domain.RoleOwner, "superuser"))
	assert.True(t, domain.RoleAtLeast(domain.RoleOwner, domain.RoleOwner))
}
