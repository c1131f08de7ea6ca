package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	salt := []byte("somesweetandsaltysalt")

	key1 := DeriveKey("correct horse battery staple", salt, 32)
	key2 := DeriveKey("correct horse battery staple", salt, 32)
	assert.Equal(t, key1, key2, "same inputs must derive the same key")

	key3 := DeriveKey("different password", salt, 32)
	assert.NotEqual(t, key1, key3)

	assert.Len(t, key1, 32)
	assert.Len(t, DeriveKey("x", salt, 64), 64)
}

func TestDeriveKeys(t *testing.T) {
	keys := DeriveKeys("session-key-for-tests-0123456789abcdef")

	all := [][]byte{keys.SessionAuth, keys.SessionEncryption, keys.CSRF, keys.Token}
	for i, k := range all {
		require.Len(t, k, 32)
		for j := i + 1; j < len(all); j++ {
			assert.False(t, bytes.Equal(k, all[j]), "keys %d and %d collide", i, j)
		}
	}

	again := DeriveKeys("session-key-for-tests-0123456789abcdef")
	assert.Equal(t, keys, again)

	other := DeriveKeys("another-session-key-0123456789abcdef")
	assert.NotEqual(t, keys.SessionAuth, other.SessionAuth)
}
