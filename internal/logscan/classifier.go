package logscan

import (
	"bufio"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"solana-ladder-lab/internal/domain"
	"solana-ladder-lab/internal/solana"
)

// EventType labels the classification of one log line.
type EventType string

const (
	// EventTypeMetric is a pipe-delimited monitor snapshot row.
	EventTypeMetric EventType = "metric"
	// EventTypeBuy is a BUY confirmation marker.
	EventTypeBuy EventType = "buy"
	// EventTypeSell is a SELL confirmation marker.
	EventTypeSell EventType = "sell"
	// EventTypeIgnored is anything else: banners, headers, debug noise.
	EventTypeIgnored EventType = "ignored"
)

// Markers and layout constants of the trading process log.
const (
	timestampLayout = "2006-01-02 15:04:05"
	timestampLen    = 19
	headerToken     = "Time"
	buyMarker       = "BUY confirmed"
	sellMarker      = "SELL confirmed"
	minMetricFields = 10
)

// Metric row field positions after splitting on "|".
const (
	fieldTimestamp = iota
	fieldMode
	fieldStepLabel
	fieldAvgCost
	fieldPrice
	fieldPercentMove
	fieldPositionSize
	fieldTradePnl
	fieldWalletPnl
	fieldSolBalance
)

// Event is one classified log line. Sample is set only for
// EventTypeMetric; Mint is set on marker lines that carry a
// recognizable token address.
type Event struct {
	Type        EventType
	TimestampMs int64
	Sample      *domain.MetricSample
	Mint        string
}

// Classifier turns raw log lines into typed events. Classification is
// pure and deterministic: the same line always yields the same event,
// and malformed input degrades to EventTypeIgnored rather than an
// error.
type Classifier struct {
	loc *time.Location
	// Base58 runs of plausible Solana address length
	mintPattern *regexp.Regexp
}

// NewClassifier creates a classifier interpreting log timestamps in
// the local time zone, matching how the trading process writes them.
func NewClassifier() *Classifier {
	return NewClassifierInLocation(time.Local)
}

// NewClassifierInLocation creates a classifier with an explicit time
// zone for timestamp parsing.
func NewClassifierInLocation(loc *time.Location) *Classifier {
	return &Classifier{
		loc:         loc,
		mintPattern: regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`),
	}
}

// Classify maps one raw log line to an Event.
func (c *Classifier) Classify(line string) Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Event{Type: EventTypeIgnored}
	}

	if strings.Contains(trimmed, "|") && !strings.HasPrefix(trimmed, headerToken) {
		if ev, ok := c.classifyMetricRow(trimmed); ok {
			return ev
		}
	}

	if strings.Contains(trimmed, buyMarker) {
		if ev, ok := c.classifyMarker(trimmed, EventTypeBuy); ok {
			return ev
		}
	}
	if strings.Contains(trimmed, sellMarker) {
		if ev, ok := c.classifyMarker(trimmed, EventTypeSell); ok {
			return ev
		}
	}

	return Event{Type: EventTypeIgnored}
}

// classifyMetricRow parses a pipe-delimited monitor row. It fails only
// on too few fields or an unparsable leading timestamp; individual
// numeric fields degrade to nil without rejecting the row.
func (c *Classifier) classifyMetricRow(line string) (Event, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < minMetricFields {
		return Event{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	ts, ok := c.parseTimestamp(fields[fieldTimestamp])
	if !ok {
		return Event{}, false
	}

	sample := &domain.MetricSample{
		TimestampMs:  ts,
		Mode:         fields[fieldMode],
		StepLabel:    fields[fieldStepLabel],
		AvgCost:      parseFiniteFloat(fields[fieldAvgCost]),
		Price:        parseFiniteFloat(fields[fieldPrice]),
		PercentMove:  parseFiniteFloat(fields[fieldPercentMove]),
		PositionSize: parseFiniteFloat(fields[fieldPositionSize]),
		TradePnl:     parseFiniteFloat(fields[fieldTradePnl]),
		WalletPnl:    parseFiniteFloat(fields[fieldWalletPnl]),
		SolBalance:   parseFiniteFloat(fields[fieldSolBalance]),
	}

	return Event{Type: EventTypeMetric, TimestampMs: ts, Sample: sample}, true
}

// classifyMarker parses a BUY/SELL confirmation line. The line must
// lead with a parsable timestamp; a token mint is extracted when a
// base58 run on the line decodes to a 32-byte address.
func (c *Classifier) classifyMarker(line string, typ EventType) (Event, bool) {
	ts, ok := c.parseTimestamp(line)
	if !ok {
		return Event{}, false
	}
	return Event{Type: typ, TimestampMs: ts, Mint: c.extractMint(line)}, true
}

// extractMint returns the first base58 run on the line that decodes to
// exactly 32 bytes, or "".
func (c *Classifier) extractMint(line string) string {
	for _, cand := range c.mintPattern.FindAllString(line, -1) {
		if solana.IsAddress(cand) {
			return cand
		}
	}
	return ""
}

// parseTimestamp parses the fixed-width leading timestamp of s and
// returns Unix milliseconds.
func (c *Classifier) parseTimestamp(s string) (int64, bool) {
	if len(s) < timestampLen {
		return 0, false
	}
	t, err := time.ParseInLocation(timestampLayout, s[:timestampLen], c.loc)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

// parseFiniteFloat parses s as a finite float64, returning nil for
// empty strings, parse failures, NaN and infinities.
func parseFiniteFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ScanAll classifies every line read from r, in order, dropping
// ignored lines. The returned count is the total number of lines
// scanned. Lines up to 1 MiB are supported.
func (c *Classifier) ScanAll(r io.Reader) ([]Event, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []Event
	var lines int
	for scanner.Scan() {
		lines++
		ev := c.Classify(scanner.Text())
		if ev.Type == EventTypeIgnored {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, lines, err
	}
	return events, lines, nil
}
