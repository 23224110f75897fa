package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36 converts a byte slice to a base36 string of specified length.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var result strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}

	return str
}

// GenerateTractHashID creates a fallback tract_id when a spawn carries
// no purpose or display name to slug (spec.md §3's spawn pointer:
// both fields are optional). Base36 gives better information density
// than hex for the same fixed width.
func GenerateTractHashID(parentTractID string, spawnedAt time.Time, nonce int) string {
	content := fmt.Sprintf("%s|%d|%d", parentTractID, spawnedAt.UnixNano(), nonce)
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("t-%s", EncodeBase36(hash[:4], 6))
}
