package license

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix identifies keys minted by this system.
const KeyPrefix = "SD"

const keyBlocks = 3

// GenerateKey mints a new license key of the form SD-XXXX-XXXX-XXXX: three
// blocks of four uppercase hex characters drawn from crypto/rand. The key
// never depends on wall-clock time or record count, so concurrent issuance
// cannot collide by construction order.
func GenerateKey() (string, error) {
	blocks := make([]string, 0, keyBlocks+1)
	blocks = append(blocks, KeyPrefix)
	for i := 0; i < keyBlocks; i++ {
		var b [2]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		blocks = append(blocks, strings.ToUpper(hex.EncodeToString(b[:])))
	}
	return strings.Join(blocks, "-"), nil
}
