package stats

import (
	"math"
	"sort"
)

// Pure numeric helpers shared by the detection analyzers and the report
// generator. No state, no I/O.

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, or 0 for fewer than
// two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// ZScore returns (value - mean) / stddev.
// A zero stddev baseline makes the z-score undefined; we treat it as 0
// so classification falls back to absolute thresholds.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// PercentileRank returns the fraction of the population strictly below
// value, in [0,1]. Empty population ranks as 0.
func PercentileRank(population []float64, value float64) float64 {
	if len(population) == 0 {
		return 0
	}
	sorted := make([]float64, len(population))
	copy(sorted, population)
	sort.Float64s(sorted)
	below := sort.SearchFloat64s(sorted, value)
	return float64(below) / float64(len(sorted))
}

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendWorsening TrendDirection = "worsening"
)

// trendMinSamples is the minimum series length for a meaningful split.
const trendMinSamples = 5

// trendRelativeChange is the relative delta beyond which a series is
// considered worsening/improving.
const trendRelativeChange = 0.15

// Trend compares the first and second half of a chronologically ordered
// series. A >15% relative increase of the second-half mean is
// "worsening", a >15% decrease is "improving", anything else (including
// series shorter than 5 samples or a zero first-half mean) is "stable".
func Trend(ordered []float64) TrendDirection {
	if len(ordered) < trendMinSamples {
		return TrendStable
	}
	mid := len(ordered) / 2
	first := Mean(ordered[:mid])
	second := Mean(ordered[mid:])
	if first == 0 {
		return TrendStable
	}
	change := (second - first) / first
	switch {
	case change > trendRelativeChange:
		return TrendWorsening
	case change < -trendRelativeChange:
		return TrendImproving
	default:
		return TrendStable
	}
}

// Severity is the shared escalation scale for findings and alerts.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the ordering position of s; unknown severities rank lowest.
func (s Severity) Rank() int { return severityRank[s] }

// AtLeast reports whether s is at or above other on the escalation scale.
func (s Severity) AtLeast(other Severity) bool { return s.Rank() >= other.Rank() }

// Escalate raises s by exactly one level, capped at CRITICAL.
func Escalate(s Severity) Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	case SeverityMedium:
		return SeverityHigh
	case SeverityHigh, SeverityCritical:
		return SeverityCritical
	default:
		return s
	}
}

// MaxSeverity returns the higher of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
