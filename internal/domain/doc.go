// Package domain models per-area rain signals and the policy that turns them
// into public notifications.
//
// # Data Source
//
// Area features are assembled upstream from three feeds and published as one
// JSON record per area per ingest cycle: radar frames (precipitation cell ETA,
// duration, intensity class), station/model observations (last-hour precip,
// precipitation probability), hourly model samples for the next half day, and
// a seven-day daily outlook. This package never fetches anything; it
// classifies what the collector already computed.
//
// # Intensity Tables
//
// The bucket words are policy, not incidental code, and must not drift:
//
//	3-hour total (mm):  <1 none | <5 light | <15 moderate | <35 heavy | else very heavy
//	Daily total (mm):   <1 drizzle | ≤15 light | ≤64.4 moderate | ≤115.5 heavy | else very heavy
//
// The daily table mirrors the IMD rainfall intensity scale, which is why the
// boundaries are the unrounded 64.4/115.5 values rather than tidy numbers.
//
// # Rule Labels
//
// The rule engine emits zero or one pre-alert per area with labels drawn from:
//
//	HEAVY_RAIN_LIKELY        radar ETA ≤ 90 min at moderate+ intensity, or
//	                         probability ≥ 70% with ≥ 2 mm/h observed
//	SEVERE_THUNDERSTORM_RISK radar ETA ≤ 60 min at heavy intensity
//	LOCAL_DOWNPOUR_ONGOING   ≥ 10 mm observed in the last hour
//
// A "relaxed" threshold profile additionally fires HEAVY_RAIN_LIKELY at
// probability ≥ 40% or ≥ 1 mm/h, with severity capped at medium. Profiles are
// data, selected by configuration; see [StandardRules] and [RelaxedRules].
//
// # Notification Scopes
//
// Three time horizons (scopes) are considered per area: now (radar window),
// today (next-12h model window), week (daily outlook). Each scope has an
// independent trigger predicate and shares one composite scorer. The time
// source for everything here is the package clock, swappable via [SetClock],
// so classification is deterministic under test.
package domain
