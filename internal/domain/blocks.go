package domain

import "time"

const etaSpreadMin = 10

// BuildNowBlock derives the NOW display block from an area's features and the
// rule engine's pre-alert (nil when no label fired).
func BuildNowBlock(f AreaFeatures, pre *PreAlert) *NowBlock {
	from, to := EtaWindow(f.Radar.EtaMin, etaSpreadMin)
	low, high := RateBounds(valueOrZero(f.Meteo.PrecipHour))

	intensity := BucketFromRadar(f.Radar.Intensity)
	if intensity == BucketNone {
		intensity = BucketFromRadar(f.Meteo.Intensity)
	}

	confidence := 0.0
	thunder := false
	if pre != nil {
		confidence = pre.Confidence * 100
		thunder = pre.HasLabel(LabelSevereThunderstormRisk)
	}

	return &NowBlock{
		EtaFromMin:  from,
		EtaToMin:    to,
		MmhLow:      low,
		MmhHigh:     high,
		Thunder:     thunder,
		Intensity:   intensity,
		DurationMin: f.Radar.DurationMin,
		Confidence:  confidence,
	}
}

// BuildTodayBlock derives the TODAY display block from the next-12h outlook.
// The 3-hour total is a coarse quarter of the 12-hour sum, with the same
// low/high spread used elsewhere.
func BuildTodayBlock(summary OutlookSummary, loc *time.Location) *TodayBlock {
	threeMm := summary.SumPrecip12h / 4
	low := roundMm(threeMm * 0.7)
	high := roundMm(threeMm * 1.3)
	if high < low+0.2 && threeMm > 0 {
		high = roundMm(low + 0.2)
	}

	return &TodayBlock{
		MaxProb12h:  summary.MaxProb12h,
		Intensity:   ThreeHourBucket(threeMm),
		ThreeMmLow:  low,
		ThreeMmHigh: high,
		Window:      summary.Peak,
		WindowLabel: WindowLabel(summary.Peak, loc),
		TwelveMmSum: summary.SumPrecip12h,
	}
}

// BuildWeek attaches intensity words to the daily outlook.
func BuildWeek(days []DayForecast) []WeekDay {
	week := make([]WeekDay, 0, len(days))
	for _, d := range days {
		week = append(week, WeekDay{DayForecast: d, Intensity: DailyBucket(d.MmHigh)})
	}
	return week
}

// NowWindow converts a NOW block's ETA minute range into absolute instants
// anchored at the classification time. Zero window when no ETA applies.
func NowWindow(n *NowBlock) Window {
	if n == nil || n.EtaFromMin == nil || n.EtaToMin == nil {
		return Window{}
	}
	now := clock.Now()
	return Window{
		Start: now.Add(time.Duration(*n.EtaFromMin) * time.Minute),
		End:   now.Add(time.Duration(*n.EtaToMin) * time.Minute),
	}
}

// BuildObservation snapshots the cycle's numeric aggregates for persistence.
func BuildObservation(f AreaFeatures, summary OutlookSummary) Observation {
	var stale []string
	if f.Meteo.Stale {
		stale = append(stale, "OpenMeteo")
	}
	var sum *float64
	if len(f.Hourly) > 0 {
		v := summary.SumPrecip12h
		sum = &v
	}
	var peak *time.Time
	if !summary.Peak.IsZero() {
		p := summary.Peak.Start.Add(time.Hour)
		peak = &p
	}
	return Observation{
		AreaID:         f.AreaID,
		ObservedAt:     f.ObservedAt,
		PrecipHour:     f.Meteo.PrecipHour,
		Probability:    f.Meteo.Probability,
		RadarEtaMin:    f.Radar.EtaMin,
		RadarDuration:  f.Radar.DurationMin,
		RadarIntensity: f.Radar.Intensity,
		NowProb:        summary.NowProb,
		MaxProb12h:     summary.MaxProb12h,
		SumPrecip12h:   sum,
		PeakHourLocal:  peak,
		StaleSources:   stale,
	}
}
