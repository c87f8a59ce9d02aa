package domain

// MetricSample is one pipe-delimited monitor row from the trading
// process log. Numeric fields are nil when the source field did not
// parse as a finite number; nil fields stay out of all downstream
// arithmetic.
type MetricSample struct {
	TimestampMs int64  // Unix timestamp in milliseconds
	Mode        string // monitor mode tag (second field)
	StepLabel   string // free text, may start with a ladder step number

	AvgCost      *float64 // average token acquisition cost in SOL
	Price        *float64 // current token price in SOL
	PercentMove  *float64 // percent move since entry
	PositionSize *float64 // open position size in SOL
	TradePnl     *float64 // unrealized PnL of the open trade in SOL
	WalletPnl    *float64 // cumulative wallet PnL in SOL
	SolBalance   *float64 // wallet SOL balance
}

// PriceSample is one finite price observation inside a trade window.
type PriceSample struct {
	TimestampMs int64
	Price       float64
}
