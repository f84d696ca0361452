package domain

import "math"

// NowBlock is the display/decision block for the NOW scope: imminent rain
// derived from radar plus last-hour observations.
type NowBlock struct {
	EtaFromMin  *int
	EtaToMin    *int
	MmhLow      float64
	MmhHigh     float64
	Thunder     bool
	Intensity   Bucket
	DurationMin *int
	Confidence  float64 // 0..100
}

// TodayBlock is the display/decision block for the TODAY scope: the next-12h
// model outlook reduced to a 3-hour peak window.
type TodayBlock struct {
	MaxProb12h  *float64
	Intensity   Bucket
	ThreeMmLow  float64
	ThreeMmHigh float64
	Window      Window
	WindowLabel string
	TwelveMmSum float64
}

// WeekDay is one day of the weekly outlook with its intensity word.
type WeekDay struct {
	DayForecast
	Intensity Bucket
}

// TriggerProfile gates which classified conditions become notification
// candidates. Two named profiles exist; the widened one admits light-intensity
// conditions that the standard profile ignores.
type TriggerProfile struct {
	Name string

	NowRateHighMin  float64 // mm/h upper bound that alone qualifies
	NowLightConfMin float64 // percent, for light intensity
	NowDurationMin  int     // minutes
	NowEtaFromMax   int     // minutes

	TodayProbMin   float64
	TodayMinBucket Bucket

	WeekMmHighMin    float64
	WeekLightProbMin float64 // 0 disables the light-day widening
}

// StandardTriggers is the default trigger profile.
func StandardTriggers() TriggerProfile {
	return TriggerProfile{
		Name:            "standard",
		NowRateHighMin:  0.5,
		NowLightConfMin: 80,
		NowDurationMin:  120,
		NowEtaFromMax:   90,
		TodayProbMin:    70,
		TodayMinBucket:  BucketModerate,
		WeekMmHighMin:   15,
	}
}

// WidenedTriggers admits light-intensity TODAY conditions and high-probability
// light WEEK days.
func WidenedTriggers() TriggerProfile {
	p := StandardTriggers()
	p.Name = "widened"
	p.TodayMinBucket = BucketLight
	p.WeekLightProbMin = 80
	return p
}

// ShouldNotifyNow reports whether the NOW block is candidate-worthy.
func ShouldNotifyNow(n *NowBlock, p TriggerProfile) bool {
	if n == nil {
		return false
	}
	if n.MmhHigh >= p.NowRateHighMin {
		return true
	}
	if n.Intensity == BucketLight && n.Confidence >= p.NowLightConfMin {
		return true
	}
	if n.DurationMin != nil && *n.DurationMin >= p.NowDurationMin {
		return true
	}
	if n.Thunder {
		return true
	}
	if n.EtaFromMin != nil && *n.EtaFromMin <= p.NowEtaFromMax {
		return true
	}
	return false
}

// ShouldNotifyToday reports whether the TODAY block is candidate-worthy.
func ShouldNotifyToday(t *TodayBlock, p TriggerProfile) bool {
	if t == nil || t.MaxProb12h == nil {
		return false
	}
	return *t.MaxProb12h >= p.TodayProbMin && t.Intensity.Rank() >= p.TodayMinBucket.Rank()
}

// ShouldNotifyWeek reports whether any forecast day is candidate-worthy.
func ShouldNotifyWeek(week []WeekDay, p TriggerProfile) bool {
	for _, d := range week {
		if d.MmHigh >= p.WeekMmHighMin {
			return true
		}
		if p.WeekLightProbMin > 0 && d.Intensity == BucketLight && d.MaxProb >= p.WeekLightProbMin {
			return true
		}
	}
	return false
}

// ZeroSignal reports whether the block's precip bounds both round to zero,
// in which case the scope is skipped before scoring.
func (n *NowBlock) ZeroSignal() bool {
	return n == nil || roundsToZero(n.MmhLow) && roundsToZero(n.MmhHigh)
}

// ZeroSignal reports whether the block's precip bounds both round to zero.
func (t *TodayBlock) ZeroSignal() bool {
	return t == nil || roundsToZero(t.ThreeMmLow) && roundsToZero(t.ThreeMmHigh)
}

// WeekZeroSignal reports whether every forecast day's bounds round to zero.
func WeekZeroSignal(week []WeekDay) bool {
	for _, d := range week {
		if !roundsToZero(d.MmLow) || !roundsToZero(d.MmHigh) {
			return false
		}
	}
	return true
}

func roundsToZero(v float64) bool {
	return math.Round(v) == 0
}
