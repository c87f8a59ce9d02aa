package domain

// ReconstructedTrade is one completed trade recovered from the log.
// Entry balance is carried over from the last metric sample observed
// before the BUY marker; exit values come from the first
// balance-bearing sample after the SELL marker.
type ReconstructedTrade struct {
	TradeID          string   // deterministic hash, assigned before archival
	Mint             string   // base58 token mint from the BUY marker, if present
	MintOnCurve      *bool    // ed25519 curve check of the mint, nil without a mint
	EntryTimestampMs int64    // BUY marker timestamp
	EntrySolBalance  *float64 // wallet SOL balance just before entry
	ExitTimestampMs  int64    // timestamp of the finalizing sample
	ExitSolBalance   float64  // wallet SOL balance at finalization
	SellMarkerMs     int64    // SELL marker timestamp
	MaxStepReached   int      // highest ladder step label seen while open
}

// RealizedPnl returns exit balance minus entry balance, or nil when no
// entry balance was observed.
func (t *ReconstructedTrade) RealizedPnl() *float64 {
	if t.EntrySolBalance == nil {
		return nil
	}
	pnl := t.ExitSolBalance - *t.EntrySolBalance
	return &pnl
}

// DurationSeconds returns the whole seconds between entry and exit,
// clamped at zero.
func (t *ReconstructedTrade) DurationSeconds() int64 {
	d := (t.ExitTimestampMs - t.EntryTimestampMs) / 1000
	if d < 0 {
		return 0
	}
	return d
}
