package license

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^SD-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`)

func TestGenerateKey_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		assert.Regexp(t, keyPattern, key)
	}
}

func TestGenerateKey_Uniqueness(t *testing.T) {
	const n = 1000

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key generated: %s", key)
		seen[key] = struct{}{}
	}
}
