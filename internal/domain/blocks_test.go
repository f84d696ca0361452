package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNowBlock(t *testing.T) {
	f := AreaFeatures{
		AreaID: "nbhd-kukatpally",
		Radar: RadarFeatures{
			EtaMin:      intPtr(45),
			DurationMin: intPtr(40),
			Intensity:   RadarHeavy,
		},
		Meteo: MeteoFeatures{PrecipHour: floatPtr(10)},
	}
	pre := &PreAlert{
		Labels:     []Label{LabelHeavyRainLikely, LabelSevereThunderstormRisk},
		Severity:   SeverityHigh,
		Confidence: 0.85,
	}

	n := BuildNowBlock(f, pre)

	assert.Equal(t, 35, *n.EtaFromMin)
	assert.Equal(t, 55, *n.EtaToMin)
	assert.Equal(t, 6.0, n.MmhLow)
	assert.Equal(t, 13.0, n.MmhHigh)
	assert.True(t, n.Thunder)
	assert.Equal(t, BucketHeavy, n.Intensity)
	assert.Equal(t, 40, *n.DurationMin)
	assert.Equal(t, 85.0, n.Confidence)
}

func TestBuildNowBlockWithoutPreAlert(t *testing.T) {
	f := AreaFeatures{
		AreaID: "dist-nizamabad",
		Radar:  RadarFeatures{Intensity: RadarNone},
		Meteo:  MeteoFeatures{Intensity: RadarLight},
	}
	n := BuildNowBlock(f, nil)

	assert.Nil(t, n.EtaFromMin)
	assert.False(t, n.Thunder)
	assert.Equal(t, 0.0, n.Confidence)
	// Radar intensity absent, so the station-derived class fills in.
	assert.Equal(t, BucketLight, n.Intensity)
}

func TestBuildTodayBlock(t *testing.T) {
	maxProb := 85.0
	peak := Window{
		Start: time.Date(2026, 7, 14, 7, 30, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 14, 10, 30, 0, 0, time.UTC),
	}
	summary := OutlookSummary{
		MaxProb12h:   &maxProb,
		SumPrecip12h: 24,
		Peak:         peak,
	}

	tb := BuildTodayBlock(summary, time.UTC)

	// 24 mm over 12h gives a 6 mm 3-hour estimate.
	assert.Equal(t, 4.2, tb.ThreeMmLow)
	assert.Equal(t, 7.8, tb.ThreeMmHigh)
	assert.Equal(t, BucketModerate, tb.Intensity)
	assert.Equal(t, 24.0, tb.TwelveMmSum)
	assert.Equal(t, "7 am – 10 am", tb.WindowLabel)
	assert.Equal(t, peak, tb.Window)
}

func TestBuildWeek(t *testing.T) {
	date := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)
	week := BuildWeek([]DayForecast{
		{Date: date, MmLow: 8, MmHigh: 20, MaxProb: 80},
		{Date: date.AddDate(0, 0, 1), MmLow: 0, MmHigh: 0.5, MaxProb: 10},
	})

	require.Len(t, week, 2)
	assert.Equal(t, BucketModerate, week[0].Intensity)
	assert.Equal(t, BucketDrizzle, week[1].Intensity)
}

func TestNowWindowAnchorsAtClock(t *testing.T) {
	now := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	defer SetClock(nil)

	n := &NowBlock{EtaFromMin: intPtr(35), EtaToMin: intPtr(55)}
	w := NowWindow(n)

	assert.Equal(t, now.Add(35*time.Minute), w.Start)
	assert.Equal(t, now.Add(55*time.Minute), w.End)

	assert.True(t, NowWindow(nil).IsZero())
	assert.True(t, NowWindow(&NowBlock{}).IsZero())
}

func TestBuildObservation(t *testing.T) {
	now := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	maxProb := 85.0
	nowProb := 60.0
	f := AreaFeatures{
		AreaID:     "dist-warangal",
		ObservedAt: now,
		Radar:      RadarFeatures{EtaMin: intPtr(45), Intensity: RadarModerate},
		Meteo:      MeteoFeatures{PrecipHour: floatPtr(3), Stale: true},
		Hourly:     []HourlySample{{Time: now, Probability: 60, PrecipMm: 2}},
	}
	summary := OutlookSummary{
		NowProb:      &nowProb,
		MaxProb12h:   &maxProb,
		SumPrecip12h: 18,
		Peak:         Window{Start: now, End: now.Add(3 * time.Hour)},
	}

	o := BuildObservation(f, summary)

	assert.Equal(t, "dist-warangal", o.AreaID)
	assert.Equal(t, now, o.ObservedAt)
	assert.Equal(t, 45, *o.RadarEtaMin)
	assert.Equal(t, 18.0, *o.SumPrecip12h)
	assert.Equal(t, now.Add(time.Hour), *o.PeakHourLocal)
	assert.Equal(t, []string{"OpenMeteo"}, o.StaleSources)
}
