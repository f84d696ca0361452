package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Candidate is a transient (area, scope) notification candidate. It exists
// only during one governance pass; nothing here survives the cycle except
// what the governor writes to the decision log.
type Candidate struct {
	AreaID   string
	AreaName string
	Scope    Scope
	Bucket   Bucket

	// WindowLabel is the display span that joins the dedup key; Window holds
	// the instants used for escalation comparison.
	WindowLabel string
	Window      Window

	GroupKey string
	Metro    bool
	Severe   bool
	Score    float64

	// Scoring inputs, kept for diagnostics.
	MaxProb     float64
	ThreeHourMm float64
	TwelveHrMm  float64
	Thunder     bool
	EtaFromMin  *int

	Payload NotifyPayload
}

// ContentHash fingerprints a candidate's public content. Two candidates with
// the same hash within the min-gap TTL are near-duplicates.
func ContentHash(areaID string, scope Scope, bucket Bucket, windowLabel string) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s|%s", areaID, scope, bucket, windowLabel)))
	return hex.EncodeToString(h[:])
}

// Hash returns the candidate's dedup fingerprint.
func (c Candidate) Hash() string {
	return ContentHash(c.AreaID, c.Scope, c.Bucket, c.WindowLabel)
}

// NotifyPayload is the structured input handed to the text formatter.
// Opaque to governance; the formatter collaborators own its rendering.
type NotifyPayload struct {
	Area      string
	Scope     Scope
	SourceTag string
	Metro     bool
	Now       *NowBlock
	Today     *TodayBlock
	Week      []WeekDay
}

// BilingualText is the formatter output: English and Telugu lines plus
// hashtags, composed into one post by the governor.
type BilingualText struct {
	En       string
	Te       string
	Hashtags []string
}

// SourceTagFor labels the evidence behind a payload: radar-backed blocks get
// "Model+Radar", model-only blocks get "Model".
func SourceTagFor(now *NowBlock, radarIntensity RadarIntensity) string {
	if now != nil && now.EtaFromMin != nil {
		return "Model+Radar"
	}
	if radarIntensity != "" && radarIntensity != RadarNone {
		return "Model+Radar"
	}
	return "Model"
}
