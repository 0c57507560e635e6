package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccount_RemoveToken(t *testing.T) {
	account := &Account{Tokens: []SessionToken{{TokenHash: "a"}, {TokenHash: "b"}, {TokenHash: "c"}}}

	assert.True(t, account.RemoveToken("b"))
	assert.Equal(t, []SessionToken{{TokenHash: "a"}, {TokenHash: "c"}}, account.Tokens)

	assert.False(t, account.RemoveToken("b"))
	assert.Len(t, account.Tokens, 2)
}

func TestAccount_RemoveTokenKeepsOriginalBacking(t *testing.T) {
	original := []SessionToken{{TokenHash: "a"}, {TokenHash: "b"}}
	account := &Account{Tokens: original}

	account.RemoveToken("a")

	assert.Equal(t, "a", original[0].TokenHash)
	assert.Equal(t, []SessionToken{{TokenHash: "b"}}, account.Tokens)
}

func TestAccount_PruneExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	account := &Account{Tokens: []SessionToken{
		{TokenHash: "expired", ExpiresAt: &past},
		{TokenHash: "forever"},
		{TokenHash: "live", ExpiresAt: &future},
	}}

	assert.Equal(t, 1, account.PruneExpired(now))
	assert.Equal(t, []SessionToken{{TokenHash: "forever"}, {TokenHash: "live", ExpiresAt: &future}}, account.Tokens)
}

func TestAccount_HasToken(t *testing.T) {
	account := &Account{Tokens: []SessionToken{{TokenHash: "a"}}}
	equal := func(a, b string) bool { return a == b }

	assert.True(t, account.HasToken("a", equal))
	assert.False(t, account.HasToken("z", equal))
}
