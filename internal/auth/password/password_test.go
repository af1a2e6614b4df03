package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFormat(t *testing.T) {
	hashed, err := Hash("long enough")
	require.NoError(t, err)
	assert.Contains(t, hashed, "$argon2id$v=19$")
	assert.True(t, Verify("long enough", hashed))
	assert.False(t, Verify("not it", hashed))
	assert.False(t, Verify("long enough", "garbage"))
}

func TestHashesAreSalted(t *testing.T) {
	first, err := Hash("same input")
	require.NoError(t, err)
	second, err := Hash("same input")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, Verify("same input", first))
	assert.True(t, Verify("same input", second))
}
