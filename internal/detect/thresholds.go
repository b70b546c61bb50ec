package detect

// Thresholds holds the immutable classification configuration for one
// engine instance. Values are plain numbers so a config layer can
// override them without reaching into analyzer code.
type Thresholds struct {
	// Song-count classification. Rules apply in order, first match wins.
	SongVarianceCritical float64 // variance above this is CRITICAL
	SongVarianceHigh     float64
	SongVarianceMedium   float64
	SongZScoreHigh       float64 // z above this is HIGH
	SongZScoreCritBoost  float64 // CRITICAL z bound is High + this
	SongPercentileMedium float64
	DJManualGap          int // DJ-vs-manual gap must exceed this to escalate
	OverrideConfBump     float64
	DJGapConfBump        float64

	// Employee behavior.
	EmployeeAvgVarMedium  float64
	EmployeeAvgVarHigh    float64
	EmployeeMinSessions   int
	TrendMinSessions      int
	CollectionRateMedium  float64
	CollectionRateHigh    float64
	CollectionMinCheckIns int
	FlaggedHigh           int
	FlaggedCritical       int

	// Revenue.
	RevenueMinDays       int
	RevenueUnderZ        float64
	RevenueUnderCritZ    float64
	RevenueUnderFraction float64
	RevenueOverZ         float64

	// Cash drawers. Comparison is strict: a variance landing exactly on
	// a threshold does not cross it.
	DrawerWarnCents int64
	DrawerCritCents int64

	// Patterns.
	PatternMinSessions  int
	PatternBiasFraction float64
	PatternBiasMargin   float64
	RoundingMinMatches  int
	RoundingFraction    float64

	// Time-based.
	TimeMinSessions  int
	TimeLongZ        float64
	TimeShortMinutes float64
	TimeShortMaxSongs int

	// MaxRows bounds every collaborator read to keep sweep latency
	// predictable.
	MaxRows int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SongVarianceCritical: 8,
		SongVarianceHigh:     5,
		SongVarianceMedium:   2,
		SongZScoreHigh:       2.5,
		SongZScoreCritBoost:  1,
		SongPercentileMedium: 0.95,
		DJManualGap:          5,
		OverrideConfBump:     0.05,
		DJGapConfBump:        0.10,

		EmployeeAvgVarMedium:  6,
		EmployeeAvgVarHigh:    8,
		EmployeeMinSessions:   5,
		TrendMinSessions:      10,
		CollectionRateMedium:  0.95,
		CollectionRateHigh:    0.90,
		CollectionMinCheckIns: 10,
		FlaggedHigh:           3,
		FlaggedCritical:       5,

		RevenueMinDays:       7,
		RevenueUnderZ:        -2.0,
		RevenueUnderCritZ:    -3.0,
		RevenueUnderFraction: 0.5,
		RevenueOverZ:         3.0,

		DrawerWarnCents: 1000,
		DrawerCritCents: 5000,

		PatternMinSessions:  3,
		PatternBiasFraction: 0.70,
		PatternBiasMargin:   2,
		RoundingMinMatches:  5,
		RoundingFraction:    0.80,

		TimeMinSessions:   10,
		TimeLongZ:         3.0,
		TimeShortMinutes:  10,
		TimeShortMaxSongs: 3,

		MaxRows: 5000,
	}
}
