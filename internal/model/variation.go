package model

import "math"

// Trend classifies a change between two readings of the same parameter.
type Trend string

const (
	TrendPositive Trend = "positive"
	TrendNegative Trend = "negative"
	TrendNeutral  Trend = "neutral"
)

// Variation is the percentage change of p at chrono[idx] relative to the
// closest earlier reading that has a value for p.
type Variation struct {
	Percent  float64
	Previous float64
}

// ComputeVariation expects chrono sorted oldest first. It reports false when
// the reading has no value, no earlier value exists, or the earlier value is
// zero.
func ComputeVariation(chrono []WaterReading, idx int, p Param) (Variation, bool) {
	if idx <= 0 || idx >= len(chrono) {
		return Variation{}, false
	}
	current := chrono[idx].Value(p)
	if current == nil {
		return Variation{}, false
	}
	for i := idx - 1; i >= 0; i-- {
		prev := chrono[i].Value(p)
		if prev == nil {
			continue
		}
		if *prev == 0 {
			return Variation{}, false
		}
		pct := (*current - *prev) / *prev * 100
		return Variation{Percent: math.Round(pct*10) / 10, Previous: *prev}, true
	}
	return Variation{}, false
}

// Direction judges a change against the thresholds of p: moving away from the
// nearest bound is positive, moving towards it is negative. Without a
// threshold, or when the distance does not change, the sign of the variation
// decides.
func (t Thresholds) Direction(p Param, current, previous, percent float64) Trend {
	if percent == 0 {
		return TrendNeutral
	}
	bySign := TrendNegative
	if percent > 0 {
		bySign = TrendPositive
	}
	th, ok := t[p]
	if !ok {
		return bySign
	}
	distance := func(v float64) float64 {
		return math.Min(math.Abs(v-th.Min), math.Abs(v-th.Max))
	}
	cur, prev := distance(current), distance(previous)
	switch {
	case cur > prev:
		return TrendPositive
	case cur < prev:
		return TrendNegative
	default:
		return bySign
	}
}
