package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPasswordGenerator_Generate(t *testing.T) {
	gen := NewRandomPasswordGenerator()
	hasher := NewBcryptHasher(newTestConfig())

	seen := make(map[string]struct{})
	for range 50 {
		password, err := gen.Generate()
		require.NoError(t, err)

		assert.Len(t, password, generatedPasswordLength)
		assert.True(t, strings.ContainsAny(password, lowerChars))
		assert.True(t, strings.ContainsAny(password, upperChars))
		assert.True(t, strings.ContainsAny(password, digitChars))
		assert.True(t, strings.ContainsAny(password, symbolChars))
		assert.NoError(t, hasher.ValidatePasswordStrength(password))

		seen[password] = struct{}{}
	}

	assert.Len(t, seen, 50)
}
