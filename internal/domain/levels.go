package domain

// PriceLevels summarizes a non-empty price series. Mid is the
// lower-middle element of the sorted prices; RangePct is the
// min-to-max spread relative to Mid, in percent.
type PriceLevels struct {
	Min      float64
	Mid      float64
	Max      float64
	RangePct float64
}
