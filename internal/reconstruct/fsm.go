package reconstruct

import (
	"strconv"
	"strings"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/logscan"
)

// State of the trade reconstruction machine.
type State string

// Machine states.
const (
	StateIdle         State = "IDLE"
	StateOpen         State = "OPEN"
	StateAwaitingExit State = "AWAITING_EXIT"
)

// Reconstructor folds an ordered event stream into completed trades.
// Events must be fed in log order; trades finalize only when a
// balance-bearing sample follows the SELL marker, so a trade cut off
// by the end of the log is discarded.
type Reconstructor struct {
	state      State
	lastSample *domain.MetricSample
	open       *openPosition
	trades     []*domain.ReconstructedTrade
}

// openPosition accumulates an in-flight trade between markers.
type openPosition struct {
	entryMs      int64
	entryBalance *float64
	mint         string
	maxStep      int
	sellMarkerMs int64
}

// NewReconstructor creates a reconstructor in the idle state.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{state: StateIdle}
}

// State returns the current machine state.
func (r *Reconstructor) State() State {
	return r.state
}

// Trades returns the finalized trades in completion order.
func (r *Reconstructor) Trades() []*domain.ReconstructedTrade {
	return r.trades
}

// OnEvent advances the machine by one event. Events that make no sense
// in the current state (a BUY while open, a SELL while idle) are
// dropped.
func (r *Reconstructor) OnEvent(ev logscan.Event) {
	switch ev.Type {
	case logscan.EventTypeMetric:
		r.onSample(ev.Sample)
	case logscan.EventTypeBuy:
		r.onBuy(ev)
	case logscan.EventTypeSell:
		r.onSell(ev)
	}
}

func (r *Reconstructor) onSample(sample *domain.MetricSample) {
	if sample == nil {
		return
	}

	switch r.state {
	case StateOpen:
		if step, ok := leadingStep(sample.StepLabel); ok && step > r.open.maxStep {
			r.open.maxStep = step
		}
	case StateAwaitingExit:
		if sample.SolBalance != nil {
			r.finalize(sample.TimestampMs, *sample.SolBalance)
		}
	}

	r.lastSample = sample
}

func (r *Reconstructor) onBuy(ev logscan.Event) {
	// A BUY before any sample has no entry balance context to anchor
	// the trade; it is dropped along with a BUY arriving mid-trade.
	if r.state != StateIdle || r.lastSample == nil {
		return
	}

	r.open = &openPosition{
		entryMs:      ev.TimestampMs,
		entryBalance: r.lastSample.SolBalance,
		mint:         ev.Mint,
		maxStep:      1,
	}
	r.state = StateOpen
}

func (r *Reconstructor) onSell(ev logscan.Event) {
	if r.state != StateOpen {
		return
	}

	r.open.sellMarkerMs = ev.TimestampMs
	r.state = StateAwaitingExit
}

func (r *Reconstructor) finalize(exitMs int64, exitBalance float64) {
	if exitMs > r.open.entryMs {
		r.trades = append(r.trades, &domain.ReconstructedTrade{
			Mint:             r.open.mint,
			EntryTimestampMs: r.open.entryMs,
			EntrySolBalance:  r.open.entryBalance,
			ExitTimestampMs:  exitMs,
			ExitSolBalance:   exitBalance,
			SellMarkerMs:     r.open.sellMarkerMs,
			MaxStepReached:   r.open.maxStep,
		})
	}

	r.open = nil
	r.state = StateIdle
}

// Reconstruct replays the full event stream through a fresh machine
// and returns the completed trades.
func Reconstruct(events []logscan.Event) []*domain.ReconstructedTrade {
	r := NewReconstructor()
	for _, ev := range events {
		r.OnEvent(ev)
	}
	return r.Trades()
}

// leadingStep parses the unsigned integer prefix of a step label, such
// as the 3 in "3 buys".
func leadingStep(label string) (int, bool) {
	s := strings.TrimSpace(label)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}
