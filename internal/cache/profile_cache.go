package cache

import (
	"strings"
	"time"

	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
)

const (
	defaultProfileTTL = time.Minute
	defaultVCardTTL   = 5 * time.Minute
)

// ProfileCache stores hot-path card lookups. Public profile reads are
// unauthenticated and dominate traffic when a card circulates.
type ProfileCache interface {
	GetProfile(cardUUID string) (*userdomain.PublicProfile, bool)
	SetProfile(cardUUID string, profile *userdomain.PublicProfile)
	GetVCard(cardUUID string) (*userdomain.VCardExport, bool)
	SetVCard(cardUUID string, export *userdomain.VCardExport)
	Invalidate(cardUUID string)
}

type profileCache struct {
	profiles   Cache[string, *userdomain.PublicProfile]
	vcards     Cache[string, *userdomain.VCardExport]
	profileTTL time.Duration
	vcardTTL   time.Duration
}

// NewProfileCache returns an in-memory cache tuned for card scans.
func NewProfileCache() ProfileCache {
	return &profileCache{
		profiles:   NewTTLCache[string, *userdomain.PublicProfile](),
		vcards:     NewTTLCache[string, *userdomain.VCardExport](),
		profileTTL: defaultProfileTTL,
		vcardTTL:   defaultVCardTTL,
	}
}

func (c *profileCache) GetProfile(cardUUID string) (*userdomain.PublicProfile, bool) {
	return c.profiles.Get(cacheKey(cardUUID))
}

func (c *profileCache) SetProfile(cardUUID string, profile *userdomain.PublicProfile) {
	if profile == nil {
		return
	}
	c.profiles.Set(cacheKey(cardUUID), profile, c.profileTTL)
}

func (c *profileCache) GetVCard(cardUUID string) (*userdomain.VCardExport, bool) {
	return c.vcards.Get(cacheKey(cardUUID))
}

func (c *profileCache) SetVCard(cardUUID string, export *userdomain.VCardExport) {
	if export == nil {
		return
	}
	c.vcards.Set(cacheKey(cardUUID), export, c.vcardTTL)
}

func (c *profileCache) Invalidate(cardUUID string) {
	c.profiles.Delete(cacheKey(cardUUID))
	c.vcards.Delete(cacheKey(cardUUID))
}

func cacheKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
