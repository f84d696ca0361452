package domain

import (
	"fmt"
	"math"
	"time"
)

// Bucket is the human intensity word used in notification text and as part of
// the dedup key.
type Bucket string

const (
	BucketNone      Bucket = "none"
	BucketDrizzle   Bucket = "drizzle"
	BucketLight     Bucket = "light"
	BucketModerate  Bucket = "moderate"
	BucketHeavy     Bucket = "heavy"
	BucketVeryHeavy Bucket = "very heavy"
)

// Rank orders buckets for escalation and scoring:
// drizzle/none=0, light=1, moderate=2, heavy=3, very heavy=4.
func (b Bucket) Rank() int {
	switch b {
	case BucketLight:
		return 1
	case BucketModerate:
		return 2
	case BucketHeavy:
		return 3
	case BucketVeryHeavy:
		return 4
	default:
		return 0
	}
}

// ThreeHourBucket maps a 3-hour rainfall total (mm) to an intensity word.
func ThreeHourBucket(mm float64) Bucket {
	switch {
	case mm < 1:
		return BucketNone
	case mm < 5:
		return BucketLight
	case mm < 15:
		return BucketModerate
	case mm < 35:
		return BucketHeavy
	default:
		return BucketVeryHeavy
	}
}

// DailyBucket maps a daily rainfall total (mm) to the IMD intensity word.
func DailyBucket(mm float64) Bucket {
	switch {
	case mm < 1:
		return BucketDrizzle
	case mm <= 15:
		return BucketLight
	case mm <= 64.4:
		return BucketModerate
	case mm <= 115.5:
		return BucketHeavy
	default:
		return BucketVeryHeavy
	}
}

// BucketFromRadar maps a radar intensity class onto the bucket scale.
func BucketFromRadar(i RadarIntensity) Bucket {
	switch i {
	case RadarLight:
		return BucketLight
	case RadarModerate:
		return BucketModerate
	case RadarHeavy:
		return BucketHeavy
	default:
		return BucketNone
	}
}

// OutlookSummary aggregates the next 12 hourly model samples.
type OutlookSummary struct {
	NowProb      *float64
	MaxProb12h   *float64
	SumPrecip12h float64
	Peak         Window // 3-hour span centered on the max-probability hour
}

// SummarizeOutlook reduces hourly samples to the next-12h aggregates. Samples
// at or after now are considered, oldest first; the peak window is the 3-hour
// span centered on the hour with the highest probability.
func SummarizeOutlook(samples []HourlySample, now time.Time) OutlookSummary {
	var window []HourlySample
	for _, s := range samples {
		if s.Time.Before(now.Truncate(time.Hour)) {
			continue
		}
		window = append(window, s)
		if len(window) == 12 {
			break
		}
	}
	if len(window) == 0 {
		return OutlookSummary{}
	}

	nowProb := window[0].Probability
	sum := 0.0
	peakIdx := 0
	maxProb := window[0].Probability
	for i, s := range window {
		sum += s.PrecipMm
		if s.Probability > maxProb {
			maxProb = s.Probability
			peakIdx = i
		}
	}

	peakHour := window[peakIdx].Time.Truncate(time.Hour)
	return OutlookSummary{
		NowProb:      &nowProb,
		MaxProb12h:   &maxProb,
		SumPrecip12h: sum,
		Peak:         Window{Start: peakHour.Add(-time.Hour), End: peakHour.Add(2 * time.Hour)},
	}
}

// WindowLabel renders a window as a local-time span like "1 pm – 4 pm".
// Display only; decision logic compares the instants.
func WindowLabel(w Window, loc *time.Location) string {
	if w.IsZero() {
		return "later today"
	}
	return fmt.Sprintf("%s – %s", hourLabel(w.Start.In(loc)), hourLabel(w.End.In(loc)))
}

func hourLabel(t time.Time) string {
	h := t.Hour()
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d %s", h12, suffix)
}

// EtaWindow spreads a radar ETA center into a from/to minute range. Returns
// nils when no ETA applies.
func EtaWindow(etaMin *int, plusMinus int) (from, to *int) {
	if etaMin == nil {
		return nil, nil
	}
	f := *etaMin - plusMinus
	if f < 0 {
		f = 0
	}
	t := *etaMin + plusMinus
	if t <= f {
		t = f + 1
	}
	return &f, &t
}

// RateBounds spreads an observed mm/h rate into a low/high display range.
func RateBounds(mmPerHour float64) (low, high float64) {
	low = roundMm(mmPerHour * 0.6)
	if low < 0.2 && mmPerHour > 0 {
		low = 0.2
	}
	high = roundMm(mmPerHour * 1.3)
	if high < low+0.2 {
		high = roundMm(low + 0.2)
	}
	return low, high
}

func roundMm(v float64) float64 {
	return math.Round(v*10) / 10
}
