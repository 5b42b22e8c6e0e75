package canon

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// hashLength is the number of hex characters kept from the digest.
const hashLength = 32

// Hash returns a stable, filesystem-safe key for a canonical URL.
// It names page files, so the same URL always maps to the same file across
// runs and resumes.
func Hash(canonicalURL string) string {
	sum := sha3.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])[:hashLength]
}
