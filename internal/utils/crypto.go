// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateDownloadKey derives the one-time unlock key handed out when a
// license record is burned. The key must be unguessable: it mixes the record
// id, the burning owner, the burn timestamp, and a random nonce through
// SHA-256. Never sequential, never reused.
func GenerateDownloadKey(recordID uint64, ownerID uuid.UUID, at time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to read random nonce: %w", err)
	}

	hasher := sha256.New()
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], recordID)
	hasher.Write(idBuf[:])
	hasher.Write(ownerID[:])

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(at.UnixNano()))
	hasher.Write(tsBuf[:])
	hasher.Write(nonce)

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 digest of the input.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashString returns the hex SHA-256 digest of the input.
func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// ValidateContentHash checks uploaded bytes against an expected digest.
func ValidateContentHash(data []byte, expectedHash string) bool {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]) == expectedHash
}
