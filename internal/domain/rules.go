package domain

// Label identifies a fired rule.
type Label string

const (
	LabelHeavyRainLikely        Label = "HEAVY_RAIN_LIKELY"
	LabelSevereThunderstormRisk Label = "SEVERE_THUNDERSTORM_RISK"
	LabelLocalDownpourOngoing   Label = "LOCAL_DOWNPOUR_ONGOING"
)

// Source names an evidence feed backing a label.
type Source string

const (
	SourceRadar    Source = "Radar"
	SourceStations Source = "Stations"
	SourceNowcast  Source = "Nowcast"
)

// PreAlert is the rule engine's output: the fired labels with a derived
// severity and confidence. Nil when no label fires, which is a valid
// non-alert outcome, not an error.
type PreAlert struct {
	Labels     []Label
	Severity   Severity
	Confidence float64 // 0..1
	Sources    []Source
}

// HasLabel reports whether the pre-alert carries the given label.
func (p *PreAlert) HasLabel(l Label) bool {
	for _, have := range p.Labels {
		if have == l {
			return true
		}
	}
	return false
}

// RuleThresholds is a named rule profile. Thresholds are data so divergent
// operational tunings stay configuration, not branches.
type RuleThresholds struct {
	Name string

	HeavyRainEtaMax    int     // minutes
	HeavyRainProbMin   float64 // percent
	HeavyRainPrecipMin float64 // mm/h

	SevereEtaMax int // minutes, requires heavy radar intensity

	DownpourPrecipMin float64 // mm/h

	// Relaxed widening: when enabled, HEAVY_RAIN_LIKELY also fires at
	// RelaxedProbMin or RelaxedPrecipMin, and severity is capped to medium
	// (medium only above the RelaxedMedium* thresholds, info otherwise).
	Relaxed                bool
	RelaxedProbMin         float64
	RelaxedPrecipMin       float64
	RelaxedMediumProbMin   float64
	RelaxedMediumPrecipMin float64
}

// StandardRules is the default rule profile.
func StandardRules() RuleThresholds {
	return RuleThresholds{
		Name:               "standard",
		HeavyRainEtaMax:    90,
		HeavyRainProbMin:   70,
		HeavyRainPrecipMin: 2,
		SevereEtaMax:       60,
		DownpourPrecipMin:  10,
	}
}

// RelaxedRules widens HEAVY_RAIN_LIKELY so alerts still fire in calm weather.
func RelaxedRules() RuleThresholds {
	t := StandardRules()
	t.Name = "relaxed"
	t.Relaxed = true
	t.RelaxedProbMin = 40
	t.RelaxedPrecipMin = 1.0
	t.RelaxedMediumProbMin = 60
	t.RelaxedMediumPrecipMin = 3
	return t
}

// EvaluateRules classifies one area's features against a rule profile.
// Pure and deterministic: identical input and profile always yield identical
// output. Returns nil when no label fires.
func EvaluateRules(f AreaFeatures, t RuleThresholds) *PreAlert {
	var labels []Label
	var sources []Source

	addSource := func(s Source) {
		for _, have := range sources {
			if have == s {
				return
			}
		}
		sources = append(sources, s)
	}

	radar := f.Radar
	etaOK := radar.EtaMin != nil && *radar.EtaMin <= t.HeavyRainEtaMax
	modPlus := radar.Intensity == RadarModerate || radar.Intensity == RadarHeavy
	prob := valueOrZero(f.Meteo.Probability)
	precip := valueOrZero(f.Meteo.PrecipHour)

	if (etaOK && modPlus) || (prob >= t.HeavyRainProbMin && precip >= t.HeavyRainPrecipMin) {
		labels = append(labels, LabelHeavyRainLikely)
		addSource(SourceRadar)
	}
	if radar.EtaMin != nil && *radar.EtaMin <= t.SevereEtaMax && radar.Intensity == RadarHeavy {
		labels = append(labels, LabelSevereThunderstormRisk)
		addSource(SourceRadar)
	}
	if precip >= t.DownpourPrecipMin {
		labels = append(labels, LabelLocalDownpourOngoing)
		addSource(SourceStations)
	}

	relaxedHit := t.Relaxed && (prob >= t.RelaxedProbMin || precip >= t.RelaxedPrecipMin)
	if relaxedHit && !containsLabel(labels, LabelHeavyRainLikely) {
		labels = append(labels, LabelHeavyRainLikely)
		addSource(SourceStations)
	}

	if len(labels) == 0 {
		return nil
	}

	severity := SeverityInfo
	switch {
	case containsLabel(labels, LabelSevereThunderstormRisk):
		severity = SeverityHigh
	case containsLabel(labels, LabelHeavyRainLikely):
		severity = SeverityMedium
	}
	if relaxedHit {
		if prob >= t.RelaxedMediumProbMin || precip >= t.RelaxedMediumPrecipMin {
			severity = SeverityMedium
		} else {
			severity = SeverityInfo
		}
	}

	// Confidence blends nearer ETA, higher probability, and radar intensity.
	confidence := 0.3
	if radar.EtaMin != nil {
		confidence += max(0, float64(t.HeavyRainEtaMax-*radar.EtaMin)/180)
	}
	confidence += (prob / 100) * 0.3
	switch radar.Intensity {
	case RadarModerate:
		confidence += 0.1
	case RadarHeavy:
		confidence += 0.2
	}
	confidence = clip01(confidence)

	return &PreAlert{Labels: labels, Severity: severity, Confidence: confidence, Sources: sources}
}

func containsLabel(labels []Label, l Label) bool {
	for _, have := range labels {
		if have == l {
			return true
		}
	}
	return false
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
