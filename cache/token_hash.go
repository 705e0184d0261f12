package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken hashes a token string so the store never holds raw bearer
// tokens and keys stay a fixed, short length.
func HashToken(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	return hex.EncodeToString(hasher.Sum(nil))
}
