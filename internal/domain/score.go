package domain

// ScoreWeights is the composite priority weighting for candidates. One weight
// set applies to all scopes; the scope term itself is the only per-scope knob.
type ScoreWeights struct {
	ScopeNow   float64
	ScopeToday float64
	ScopeWeek  float64

	BucketRank   float64
	MaxProb      float64
	Thunder      float64
	EtaSoon      float64
	EtaSoonMax   int // minutes
	ThreeHourMm  float64
	TwelveHourMm float64
	Metro        float64
}

// DefaultScoreWeights is the canonical weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		ScopeNow:     60,
		ScopeToday:   30,
		ScopeWeek:    0,
		BucketRank:   25,
		MaxProb:      0.4,
		Thunder:      10,
		EtaSoon:      10,
		EtaSoonMax:   60,
		ThreeHourMm:  0.5,
		TwelveHourMm: 0.4,
		Metro:        6,
	}
}

// ScoreCandidate computes the composite priority score used for per-cycle
// ranking. Higher is more urgent.
func ScoreCandidate(c Candidate, w ScoreWeights) float64 {
	score := 0.0
	switch c.Scope {
	case ScopeNow:
		score += w.ScopeNow
	case ScopeToday:
		score += w.ScopeToday
	case ScopeWeek:
		score += w.ScopeWeek
	}
	score += w.BucketRank * float64(c.Bucket.Rank())
	score += w.MaxProb * c.MaxProb
	if c.Thunder {
		score += w.Thunder
	}
	if c.EtaFromMin != nil && *c.EtaFromMin <= w.EtaSoonMax {
		score += w.EtaSoon
	}
	score += w.ThreeHourMm * c.ThreeHourMm
	score += w.TwelveHourMm * c.TwelveHrMm
	if c.Metro {
		score += w.Metro
	}
	return score
}
