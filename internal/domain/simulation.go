package domain

// LadderVariant is a named, ordered set of capital allocation
// fractions defining staged entries. Fractions nominally sum to 1.
type LadderVariant struct {
	Name      string
	Fractions []float64
}

// Exit kinds
const (
	ExitKindTakeProfit  = "TAKE_PROFIT"
	ExitKindHardStop    = "HARD_STOP"
	ExitKindForcedClose = "FORCED_CLOSE"
)

// SimulationResult is the outcome of one ladder variant replayed
// against a trade's price series.
type SimulationResult struct {
	VariantName     string
	ExitIndex       int     // index into the price series where the position closed
	StepsUsed       int     // ladder entries executed before close
	RealizedPnlSol  float64 // proceeds minus SOL spent
	PnlBps          float64 // RealizedPnlSol relative to SOL spent, in basis points
	TargetBpsAtExit float64 // take-profit target in force at close
	ExitKind        string
}

// SimulationRecord is the archived form of a simulation result,
// linked to its reconstructed trade.
type SimulationRecord struct {
	SimulationID    string // deterministic hash over trade, variant and params
	TradeID         string
	VariantName     string
	ParamsDigest    string // fingerprint of the ladder parameters used
	ExitIndex       int
	StepsUsed       int
	RealizedPnlSol  float64
	PnlBps          float64
	TargetBpsAtExit float64
	ExitKind        string
	CreatedAtMs     int64 // Unix timestamp in milliseconds
}
