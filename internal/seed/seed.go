package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/cardlinkhq/cardlink/internal/auth/domain"
	"github.com/cardlinkhq/cardlink/internal/auth/password"
	organizationdomain "github.com/cardlinkhq/cardlink/internal/organization/domain"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	defaultOrgName       = "Main"
	defaultOrgSlug       = "main"
	defaultOwnerEmail    = "admin@cardlink.local"
	defaultOwnerPassword = "admin"
	defaultOwnerDisplay  = "CardLink Admin"
)

// EnsureDefaultOrg seeds the default organization for startup bootstrap.
func EnsureDefaultOrg(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureDefaultOrgTx(ctx, tx, node)
		return err
	})
}

// EnsureDefaultOrgAndOwner seeds the default organization and an owner
// account for self-hosted mode. The owner password is a well-known
// placeholder and must be rotated before real use.
func EnsureDefaultOrgAndOwner(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureDefaultOrgTx(ctx, tx, node)
		if err != nil {
			return err
		}

		account, err := ensureOwnerAccountTx(ctx, tx, node)
		if err != nil {
			return err
		}

		return ensureOwnerMembershipTx(ctx, tx, node, org.ID, account.ID)
	})
}

func ensureDefaultOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).
		Where("slug = ?", defaultOrgSlug).
		First(&org).Error
	if err == nil {
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        node.Generate(),
		Name:      defaultOrgName,
		Slug:      slug.Make(defaultOrgSlug),
		CreatedBy: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func ensureOwnerAccountTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*authdomain.Account, error) {
	email := strings.ToLower(defaultOwnerEmail)

	var account authdomain.Account
	err := tx.WithContext(ctx).
		Where("email = ?", email).
		First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(defaultOwnerPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account = authdomain.Account{
		ID:           node.Generate(),
		Email:        email,
		DisplayName:  defaultOwnerDisplay,
		PasswordHash: &hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func ensureOwnerMembershipTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID, accountID snowflake.ID) error {
	var member organizationdomain.Member
	err := tx.WithContext(ctx).
		Where("org_id = ? AND account_id = ?", orgID, accountID).
		First(&member).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	member = organizationdomain.Member{
		ID:        node.Generate(),
		OrgID:     orgID,
		AccountID: accountID,
		Role:      organizationdomain.RoleOwner,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&member).Error
}
