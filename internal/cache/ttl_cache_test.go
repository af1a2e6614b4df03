package cache

import (
	"testing"
	"time"

	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 50*time.Millisecond)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)

	// Zero TTL entries are never stored.
	c.Set("b", 2, 0)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestProfileCacheInvalidate(t *testing.T) {
	c := NewProfileCache()
	profile := &userdomain.PublicProfile{CardUUID: "ABC", FullName: "Ada Lovelace"}

	c.SetProfile("ABC", profile)
	got, ok := c.GetProfile("abc")
	assert.True(t, ok)
	assert.Equal(t, "Ada Lovelace", got.FullName)

	c.SetVCard("abc", &userdomain.VCardExport{FileName: "ada-lovelace.vcf"})
	c.Invalidate(" ABC ")

	_, ok = c.GetProfile("abc")
	assert.False(t, ok)
	_, ok = c.GetVCard("abc")
	assert.False(t, ok)
}
