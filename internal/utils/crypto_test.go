// internal/utils/crypto_test.go
package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDownloadKey(t *testing.T) {
	owner := uuid.New()
	now := time.Now()

	key, err := GenerateDownloadKey(1, owner, now)
	require.NoError(t, err)
	assert.Len(t, key, 64) // hex SHA-256

	// Identical inputs still produce distinct keys: the nonce guarantees
	// the key is never guessable from the record id sequence.
	again, err := GenerateDownloadKey(1, owner, now)
	require.NoError(t, err)
	assert.NotEqual(t, key, again)
}

func TestValidateContentHash(t *testing.T) {
	data := []byte("layer height 0.2mm")
	hash := HashBytes(data)

	assert.True(t, ValidateContentHash(data, hash))
	assert.False(t, ValidateContentHash([]byte("layer height 0.3mm"), hash))
	assert.Equal(t, hash, HashString("layer height 0.2mm"))
}
