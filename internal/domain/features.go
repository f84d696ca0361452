package domain

import "time"

// AreaType distinguishes district-level areas from city neighbourhoods.
type AreaType string

const (
	AreaDistrict      AreaType = "district"
	AreaNeighbourhood AreaType = "neighbourhood"
)

// Scope is the time horizon a notification addresses.
type Scope string

const (
	ScopeNow   Scope = "now"
	ScopeToday Scope = "today"
	ScopeWeek  Scope = "week"
)

// Severity of an emitted alert.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RadarIntensity is the intensity class reported by the radar feed.
type RadarIntensity string

const (
	RadarNone     RadarIntensity = "none"
	RadarLight    RadarIntensity = "light"
	RadarModerate RadarIntensity = "moderate"
	RadarHeavy    RadarIntensity = "heavy"
)

// RadarFeatures carries the radar-derived signal for one area.
// EtaMin and DurationMin are nil when no radar cell applies to the area.
type RadarFeatures struct {
	EtaMin      *int           `json:"etaMin"`
	DurationMin *int           `json:"durationMin"`
	Intensity   RadarIntensity `json:"intensity"`
}

// MeteoFeatures carries station/model observations for one area.
type MeteoFeatures struct {
	PrecipHour  *float64       `json:"precipHour"`  // mm observed in the last hour
	Probability *float64       `json:"probability"` // 0..100
	Intensity   RadarIntensity `json:"intensity"`
	Stale       bool           `json:"stale"`
}

// HourlySample is one hourly model sample used for the next-12h outlook.
type HourlySample struct {
	Time        time.Time `json:"time"`
	Probability float64   `json:"probability"` // 0..100
	PrecipMm    float64   `json:"precipMm"`
}

// DayForecast is one day of the weekly outlook with low/high precip bounds.
type DayForecast struct {
	Date    time.Time `json:"date"`
	MmLow   float64   `json:"mmLow"`
	MmHigh  float64   `json:"mmHigh"`
	MaxProb float64   `json:"maxProb"` // 0..100
}

// AreaFeatures is one area's signal snapshot for one ingest cycle.
// Ephemeral; a fresh record arrives per area per cycle.
type AreaFeatures struct {
	AreaID     string         `json:"areaId"`
	AreaName   string         `json:"areaName"`
	Type       AreaType       `json:"type"`
	Radar      RadarFeatures  `json:"radar"`
	Meteo      MeteoFeatures  `json:"meteo"`
	Hourly     []HourlySample `json:"hourly,omitempty"`
	Week       []DayForecast  `json:"week,omitempty"`
	ObservedAt time.Time      `json:"observedAt"`
}

// Window is a locale-agnostic time span. Decision logic compares instants;
// display formatting happens at the edges.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool { return w.Start.IsZero() && w.End.IsZero() }

// Observation is the persisted per-(area, cycle) snapshot of the numeric
// aggregates downstream scopes consume. Append-only.
type Observation struct {
	AreaID         string
	ObservedAt     time.Time
	PrecipHour     *float64
	Probability    *float64
	RadarEtaMin    *int
	RadarDuration  *int
	RadarIntensity RadarIntensity
	NowProb        *float64
	MaxProb12h     *float64
	SumPrecip12h   *float64
	PeakHourLocal  *time.Time
	StaleSources   []string
}

// Alert is a persisted classified alert. Never mutated after creation.
type Alert struct {
	AreaID      string
	Scope       Scope
	IssuedAt    time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Severity    Severity
	Confidence  float64
	TextEn      string
	TextTe      string
	Sources     []Source
}

// IsMetro reports whether an area belongs to the designated metro group
// (Hyderabad district and its neighbourhoods).
func IsMetro(areaID string) bool {
	return areaID == "dist-hyderabad" || len(areaID) > 5 && areaID[:5] == "nbhd-"
}

// GroupKey returns the diversity-cap grouping for an area: metro areas share
// one group, every other area is its own group.
func GroupKey(areaID string) string {
	if IsMetro(areaID) {
		return "metro"
	}
	return areaID
}
