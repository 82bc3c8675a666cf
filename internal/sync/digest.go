package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tia2694/paludario/internal/model"
)

// digestLen is the number of hex characters kept from the hash.
const digestLen = 16

// Digest fingerprints the aggregate for change detection.
func Digest(agg model.Aggregate) string {
	raw, err := json.Marshal(agg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:digestLen]
}
