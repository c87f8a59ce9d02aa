package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(mint|entry_ms|exit_ms|sell_marker_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	mint string,
	entryMs int64,
	exitMs int64,
	sellMarkerMs int64,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		mint,
		entryMs,
		exitMs,
		sellMarkerMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
