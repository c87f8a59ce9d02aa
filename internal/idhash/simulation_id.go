package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ComputeSimulationID computes a deterministic simulation_id using SHA256.
// Formula: SHA256(trade_id|variant_name|params_digest)
// Returns hex-encoded hash (64 characters).
func ComputeSimulationID(
	tradeID string,
	variantName string,
	paramsDigest string,
) string {
	data := fmt.Sprintf("%s|%s|%s",
		tradeID,
		variantName,
		paramsDigest,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeParamsDigest fingerprints a ladder parameter set so archived
// simulations stay distinguishable across configuration changes.
// Formula: SHA256(base_bps|hard_stop_bps|step_bps|t1,t2,...|capital)
// Returns hex-encoded hash (64 characters).
func ComputeParamsDigest(
	baseProfitTargetBps float64,
	hardStopBps float64,
	profitStepBps float64,
	drawdownTriggers []float64,
	capitalSol float64,
) string {
	triggers := make([]string, len(drawdownTriggers))
	for i, v := range drawdownTriggers {
		triggers[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		strconv.FormatFloat(baseProfitTargetBps, 'g', -1, 64),
		strconv.FormatFloat(hardStopBps, 'g', -1, 64),
		strconv.FormatFloat(profitStepBps, 'g', -1, 64),
		strings.Join(triggers, ","),
		strconv.FormatFloat(capitalSol, 'g', -1, 64),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
