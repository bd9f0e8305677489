package capture

import (
	"crypto/sha256"
	"encoding/hex"
)

// truncateBytes keeps at most maxBytes of in. When it cuts, it also returns
// the original length and the sha256 of the full input.
func truncateBytes(in []byte, maxBytes int) ([]byte, bool, int, string) {
	if maxBytes <= 0 || len(in) <= maxBytes {
		return in, false, len(in), ""
	}
	sum := sha256.Sum256(in)
	return in[:maxBytes], true, len(in), hex.EncodeToString(sum[:])
}

func truncateStringBytes(in string, maxBytes int) (string, bool, int, string) {
	out, truncated, size, hash := truncateBytes([]byte(in), maxBytes)
	return string(out), truncated, size, hash
}
