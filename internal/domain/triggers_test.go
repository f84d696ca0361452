package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldNotifyNow(t *testing.T) {
	p := StandardTriggers()

	t.Run("rate alone qualifies", func(t *testing.T) {
		assert.True(t, ShouldNotifyNow(&NowBlock{MmhHigh: 0.5}, p))
		assert.False(t, ShouldNotifyNow(&NowBlock{MmhHigh: 0.4}, p))
	})

	t.Run("confident light rain qualifies", func(t *testing.T) {
		assert.True(t, ShouldNotifyNow(&NowBlock{Intensity: BucketLight, Confidence: 80}, p))
		assert.False(t, ShouldNotifyNow(&NowBlock{Intensity: BucketLight, Confidence: 79}, p))
	})

	t.Run("long duration qualifies", func(t *testing.T) {
		assert.True(t, ShouldNotifyNow(&NowBlock{DurationMin: intPtr(120)}, p))
		assert.False(t, ShouldNotifyNow(&NowBlock{DurationMin: intPtr(119)}, p))
	})

	t.Run("thunder qualifies", func(t *testing.T) {
		assert.True(t, ShouldNotifyNow(&NowBlock{Thunder: true}, p))
	})

	t.Run("near eta qualifies", func(t *testing.T) {
		assert.True(t, ShouldNotifyNow(&NowBlock{EtaFromMin: intPtr(90)}, p))
		assert.False(t, ShouldNotifyNow(&NowBlock{EtaFromMin: intPtr(91)}, p))
	})

	t.Run("nil block never qualifies", func(t *testing.T) {
		assert.False(t, ShouldNotifyNow(nil, p))
	})
}

func TestShouldNotifyToday(t *testing.T) {
	std := StandardTriggers()
	wide := WidenedTriggers()

	block := func(prob float64, intensity Bucket) *TodayBlock {
		return &TodayBlock{MaxProb12h: &prob, Intensity: intensity}
	}

	assert.True(t, ShouldNotifyToday(block(70, BucketModerate), std))
	assert.False(t, ShouldNotifyToday(block(69, BucketModerate), std))

	// The standard profile ignores light intensity; the widened one admits it.
	assert.False(t, ShouldNotifyToday(block(85, BucketLight), std))
	assert.True(t, ShouldNotifyToday(block(85, BucketLight), wide))

	assert.False(t, ShouldNotifyToday(&TodayBlock{Intensity: BucketHeavy}, std))
	assert.False(t, ShouldNotifyToday(nil, std))
}

func TestShouldNotifyWeek(t *testing.T) {
	std := StandardTriggers()
	wide := WidenedTriggers()
	date := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)

	wetDay := []WeekDay{{DayForecast: DayForecast{Date: date, MmHigh: 15}, Intensity: BucketLight}}
	assert.True(t, ShouldNotifyWeek(wetDay, std))

	dryish := []WeekDay{{DayForecast: DayForecast{Date: date, MmHigh: 8, MaxProb: 85}, Intensity: BucketLight}}
	assert.False(t, ShouldNotifyWeek(dryish, std))
	// The widened profile admits confident light days.
	assert.True(t, ShouldNotifyWeek(dryish, wide))

	assert.False(t, ShouldNotifyWeek(nil, std))
}

func TestZeroSignalShortCircuit(t *testing.T) {
	assert.True(t, (*NowBlock)(nil).ZeroSignal())
	assert.True(t, (&NowBlock{MmhLow: 0.2, MmhHigh: 0.4}).ZeroSignal())
	assert.False(t, (&NowBlock{MmhLow: 0.2, MmhHigh: 0.6}).ZeroSignal())

	assert.True(t, (&TodayBlock{ThreeMmLow: 0.1, ThreeMmHigh: 0.3}).ZeroSignal())
	assert.False(t, (&TodayBlock{ThreeMmLow: 1, ThreeMmHigh: 3}).ZeroSignal())

	date := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)
	assert.True(t, WeekZeroSignal([]WeekDay{
		{DayForecast: DayForecast{Date: date, MmLow: 0.1, MmHigh: 0.4}},
	}))
	assert.False(t, WeekZeroSignal([]WeekDay{
		{DayForecast: DayForecast{Date: date, MmLow: 0.1, MmHigh: 2}},
	}))
	assert.True(t, WeekZeroSignal(nil))
}
