package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	banner          = "======================= LADDER STRATEGY REPLAY ======================="
)

// Render renders the report as fixed-layout text: a parameter header,
// one summary block per trade, a shared simulation table and a
// trailing legend.
func Render(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(banner + "\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", fmtMs(r.GeneratedAtMs, r.location())))
	sb.WriteString(fmt.Sprintf("Window: last %ds | Capital per variant: %.4f SOL\n",
		r.WindowSeconds, r.Params.CapitalSol))
	sb.WriteString(fmt.Sprintf("Take profit: base %.0f bps + %.0f bps per extra step | Hard stop: %.0f bps\n",
		r.Params.BaseProfitTargetBps, r.Params.ProfitStepBps, r.Params.HardStopBps))
	sb.WriteString(fmt.Sprintf("Drawdown triggers: %s\n", fmtTriggers(r.Params.DrawdownTriggers)))
	sb.WriteString(fmt.Sprintf("Variants: %s\n", fmtVariantNames(r)))
	sb.WriteString("\n")

	// Trade summaries
	sb.WriteString(fmt.Sprintf("Trades in window: %d\n", len(r.Trades)))
	for _, section := range r.Trades {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Trade %d | steps %d | real PnL %s | duration %ds | samples %d\n",
			section.Index,
			section.Trade.MaxStepReached,
			fmtPnlSolPtr(section.Trade.RealizedPnl()),
			section.Trade.DurationSeconds(),
			section.SampleCount))
		if section.Levels != nil {
			sb.WriteString(fmt.Sprintf("  levels: min %s | mid %s | max %s | range %.2f%%\n",
				fmtPrice(section.Levels.Min),
				fmtPrice(section.Levels.Mid),
				fmtPrice(section.Levels.Max),
				section.Levels.RangePct))
		}
	}
	sb.WriteString("\n")

	// Simulation table
	w := variantColumnWidth(r)
	sb.WriteString(fmt.Sprintf("%-5s%-21s%-21s%-9s%-7s%-14s%-*s%-14s%s\n",
		"#", "ENTRY", "EXIT", "DUR(S)", "STEPS", "REAL PNL", w, "VARIANT", "SIM PNL", "SIM PNL%"))
	for _, section := range r.Trades {
		for _, res := range section.Results {
			sb.WriteString(fmt.Sprintf("%-5d%-21s%-21s%-9d%-7d%-14s%-*s%-14s%s\n",
				section.Index,
				fmtMs(section.Trade.EntryTimestampMs, r.location()),
				fmtMs(section.Trade.ExitTimestampMs, r.location()),
				section.Trade.DurationSeconds(),
				section.Trade.MaxStepReached,
				fmtPnlPtr(section.Trade.RealizedPnl()),
				w, res.VariantName,
				fmtPnl(res.RealizedPnlSol),
				fmtPct(res.PnlBps/100)))
		}
	}
	sb.WriteString("\n")

	// Legend
	sb.WriteString("Legend: STEPS = ladder entries observed in the log | PnL in SOL\n")
	sb.WriteString("        SIM PNL% = simulated PnL over SOL spent x 100 | n/a = wallet balance missing at entry\n")

	return sb.String()
}

// TableHeader returns the simulation table column names, for console
// rendering.
func TableHeader() []string {
	return []string{"#", "ENTRY", "EXIT", "DUR(S)", "STEPS", "REAL PNL", "VARIANT", "SIM PNL", "SIM PNL%"}
}

// TableRows returns the simulation table cells, one row per trade and
// variant, for console rendering.
func TableRows(r *Report) [][]string {
	var rows [][]string
	for _, section := range r.Trades {
		for _, res := range section.Results {
			rows = append(rows, []string{
				strconv.Itoa(section.Index),
				fmtMs(section.Trade.EntryTimestampMs, r.location()),
				fmtMs(section.Trade.ExitTimestampMs, r.location()),
				strconv.FormatInt(section.Trade.DurationSeconds(), 10),
				strconv.Itoa(section.Trade.MaxStepReached),
				fmtPnlPtr(section.Trade.RealizedPnl()),
				res.VariantName,
				fmtPnl(res.RealizedPnlSol),
				fmtPct(res.PnlBps / 100),
			})
		}
	}
	return rows
}

func variantColumnWidth(r *Report) int {
	w := len("VARIANT")
	for _, v := range r.Variants {
		if len(v.Name) > w {
			w = len(v.Name)
		}
	}
	for _, section := range r.Trades {
		for _, res := range section.Results {
			if len(res.VariantName) > w {
				w = len(res.VariantName)
			}
		}
	}
	return w + 2
}

func fmtMs(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(timestampLayout)
}

func fmtPnl(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

// fmtPnlPtr renders an optional PnL, standing in "n/a" for trades
// whose entry balance never appeared in the log.
func fmtPnlPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmtPnl(*v)
}

func fmtPnlSolPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmtPnl(*v) + " SOL"
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func fmtPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 11, 64)
}

func fmtTriggers(triggers []float64) string {
	parts := make([]string, len(triggers))
	for i, t := range triggers {
		parts[i] = strconv.FormatFloat(t, 'g', -1, 64) + "%"
	}
	return strings.Join(parts, ", ")
}

func fmtVariantNames(r *Report) string {
	names := make([]string, len(r.Variants))
	for i, v := range r.Variants {
		names[i] = v.Name
	}
	return strings.Join(names, " | ")
}
