// Package engine orchestrates the decision cycle: drain the feature stream,
// classify each area, derive notification candidates, and hand them to the
// governor. One engine instance owns the cycle lease; concurrent triggers of
// the same deployment skip instead of double-posting.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/governor"
	"github.com/couchcryptid/rain-alert-service/internal/observability"
)

const leaseKey = "notify:cycle:lease"

// ErrLeaseHeld means another cycle is in flight; the caller should retry
// after the remaining lease TTL.
var ErrLeaseHeld = errors.New("cycle lease held")

var clock = clockwork.NewRealClock()

// SetClock swaps the engine's time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// FeatureSource reads up to batchSize area feature records from the stream.
// An empty batch after the flush interval is a normal quiet-weather outcome.
type FeatureSource interface {
	FetchBatch(ctx context.Context, batchSize int) ([]domain.AreaFeatures, error)
}

// SnapshotStore persists the append-only observation and alert history.
// Persistence failures degrade history, never the decision path.
type SnapshotStore interface {
	SaveObservation(ctx context.Context, o domain.Observation) error
	SaveAlert(ctx context.Context, a domain.Alert) error
}

// ReportSink publishes completed cycle reports downstream.
type ReportSink interface {
	Publish(ctx context.Context, r *governor.Report) error
}

// Engine runs decision cycles.
type Engine struct {
	source    FeatureSource
	snapshots SnapshotStore
	sink      ReportSink
	gov       *governor.Governor
	kv        governor.KeyValueStore

	rules    domain.RuleThresholds
	triggers domain.TriggerProfile
	weights  domain.ScoreWeights
	loc      *time.Location

	leaseTTL  time.Duration
	batchSize int

	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// Options carries the policy knobs for an Engine.
type Options struct {
	Rules     domain.RuleThresholds
	Triggers  domain.TriggerProfile
	Weights   domain.ScoreWeights
	Location  *time.Location
	LeaseTTL  time.Duration
	BatchSize int
}

// New creates an Engine. sink and snapshots may be nil; the engine then skips
// report publication and history persistence respectively.
func New(source FeatureSource, snapshots SnapshotStore, sink ReportSink, gov *governor.Governor, kv governor.KeyValueStore, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		source:    source,
		snapshots: snapshots,
		sink:      sink,
		gov:       gov,
		kv:        kv,
		rules:     opts.Rules,
		triggers:  opts.Triggers,
		weights:   opts.Weights,
		loc:       loc,
		leaseTTL:  opts.LeaseTTL,
		batchSize: opts.BatchSize,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one cycle has completed.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no decision cycle has completed yet")
	}
	return nil
}

// LeaseTTL reports the remaining lifetime of the cycle lease, for retry-after
// hints when a trigger collides with a running cycle.
func (e *Engine) LeaseTTL(ctx context.Context) (time.Duration, error) {
	return e.kv.TTL(ctx, leaseKey)
}

// Run executes decision cycles until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		"rule_profile", e.rules.Name,
		"trigger_profile", e.triggers.Name,
		"batch_size", e.batchSize)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping", "reason", ctx.Err())
			return nil
		default:
		}

		_, err := e.RunCycle(ctx)
		switch {
		case err == nil:
			backoff = 200 * time.Millisecond
		case errors.Is(err, ErrLeaseHeld):
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
		case ctx.Err() != nil:
			return nil
		default:
			e.logger.Error("cycle failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}
	}
}

// RunCycle executes one full decision cycle: lease, drain, classify, govern,
// publish. Returns ErrLeaseHeld when another cycle holds the lease.
func (e *Engine) RunCycle(ctx context.Context) (*governor.Report, error) {
	cycleID := uuid.NewString()

	ok, err := e.kv.SetIfAbsent(ctx, leaseKey, cycleID, e.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lease: %w", err)
	}
	if !ok {
		e.metrics.CyclesSkipped.Inc()
		return nil, ErrLeaseHeld
	}
	defer func() {
		if err := e.kv.Delete(context.WithoutCancel(ctx), leaseKey); err != nil {
			e.logger.Warn("cycle lease release failed", "error", err)
		}
	}()

	start := clock.Now()
	batch, err := e.source.FetchBatch(ctx, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch features: %w", err)
	}

	areas := latestPerArea(batch)
	candidates := e.classify(ctx, areas)

	report := e.gov.Govern(ctx, cycleID, candidates)
	e.publishReport(ctx, report)

	e.metrics.CyclesRun.Inc()
	e.metrics.CycleDuration.Observe(clock.Since(start).Seconds())
	e.ready.Store(true)

	e.logger.Info("cycle complete",
		"cycle_id", cycleID,
		"areas", len(areas),
		"candidates", len(candidates),
		"accepted", len(report.Accepted()),
		"degraded", report.Degraded)
	return report, nil
}

// latestPerArea collapses a drained batch to one record per area, keeping the
// most recent observation, sorted by area id for deterministic evaluation.
func latestPerArea(batch []domain.AreaFeatures) []domain.AreaFeatures {
	byArea := make(map[string]domain.AreaFeatures, len(batch))
	for _, f := range batch {
		if have, ok := byArea[f.AreaID]; !ok || f.ObservedAt.After(have.ObservedAt) {
			byArea[f.AreaID] = f
		}
	}
	areas := make([]domain.AreaFeatures, 0, len(byArea))
	for _, f := range byArea {
		areas = append(areas, f)
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].AreaID < areas[j].AreaID })
	return areas
}

// classify runs the rule engine and trigger predicates over each area and
// returns the scored candidate set.
func (e *Engine) classify(ctx context.Context, areas []domain.AreaFeatures) []domain.Candidate {
	now := clock.Now()
	var candidates []domain.Candidate
	for _, f := range areas {
		e.metrics.AreasEvaluated.Inc()

		summary := domain.SummarizeOutlook(f.Hourly, now)
		pre := domain.EvaluateRules(f, e.rules)

		e.persistObservation(ctx, f, summary)

		nowBlock := domain.BuildNowBlock(f, pre)
		todayBlock := domain.BuildTodayBlock(summary, e.loc)
		week := domain.BuildWeek(f.Week)

		if pre != nil {
			e.metrics.AlertsEmitted.WithLabelValues(string(pre.Severity)).Inc()
			e.persistAlert(ctx, f, pre, nowBlock, todayBlock)
		}

		candidates = append(candidates, e.areaCandidates(f, pre, nowBlock, todayBlock, week)...)
	}
	return candidates
}

// areaCandidates derives at most one candidate per scope for one area.
func (e *Engine) areaCandidates(f domain.AreaFeatures, pre *domain.PreAlert, nowBlock *domain.NowBlock, todayBlock *domain.TodayBlock, week []domain.WeekDay) []domain.Candidate {
	var out []domain.Candidate
	metro := domain.IsMetro(f.AreaID)
	sourceTag := domain.SourceTagFor(nowBlock, f.Radar.Intensity)

	// NOW needs a fired rule; the scope exists to relay the pre-alert.
	if pre != nil && !nowBlock.ZeroSignal() && domain.ShouldNotifyNow(nowBlock, e.triggers) {
		c := domain.Candidate{
			AreaID:      f.AreaID,
			AreaName:    f.AreaName,
			Scope:       domain.ScopeNow,
			Bucket:      nowBlock.Intensity,
			WindowLabel: nowLabel(nowBlock),
			Window:      domain.NowWindow(nowBlock),
			GroupKey:    domain.GroupKey(f.AreaID),
			Metro:       metro,
			Severe:      pre.HasLabel(domain.LabelSevereThunderstormRisk),
			MaxProb:     valueOr(todayBlock.MaxProb12h, 0),
			ThreeHourMm: (todayBlock.ThreeMmLow + todayBlock.ThreeMmHigh) / 2,
			TwelveHrMm:  todayBlock.TwelveMmSum,
			Thunder:     nowBlock.Thunder,
			EtaFromMin:  nowBlock.EtaFromMin,
			Payload: domain.NotifyPayload{
				Area:      f.AreaName,
				Scope:     domain.ScopeNow,
				SourceTag: sourceTag,
				Metro:     metro,
				Now:       nowBlock,
			},
		}
		c.Score = domain.ScoreCandidate(c, e.weights)
		out = append(out, c)
	}

	if !todayBlock.ZeroSignal() && domain.ShouldNotifyToday(todayBlock, e.triggers) {
		c := domain.Candidate{
			AreaID:      f.AreaID,
			AreaName:    f.AreaName,
			Scope:       domain.ScopeToday,
			Bucket:      todayBlock.Intensity,
			WindowLabel: todayBlock.WindowLabel,
			Window:      todayBlock.Window,
			GroupKey:    domain.GroupKey(f.AreaID),
			Metro:       metro,
			MaxProb:     valueOr(todayBlock.MaxProb12h, 0),
			ThreeHourMm: (todayBlock.ThreeMmLow + todayBlock.ThreeMmHigh) / 2,
			TwelveHrMm:  todayBlock.TwelveMmSum,
			Payload: domain.NotifyPayload{
				Area:      f.AreaName,
				Scope:     domain.ScopeToday,
				SourceTag: sourceTag,
				Metro:     metro,
				Today:     todayBlock,
			},
		}
		c.Score = domain.ScoreCandidate(c, e.weights)
		out = append(out, c)
	}

	if !domain.WeekZeroSignal(week) && domain.ShouldNotifyWeek(week, e.triggers) {
		day := peakDay(week)
		c := domain.Candidate{
			AreaID:      f.AreaID,
			AreaName:    f.AreaName,
			Scope:       domain.ScopeWeek,
			Bucket:      day.Intensity,
			WindowLabel: day.Date.In(e.loc).Format("Mon 2 Jan"),
			GroupKey:    domain.GroupKey(f.AreaID),
			Metro:       metro,
			MaxProb:     day.MaxProb,
			Payload: domain.NotifyPayload{
				Area:      f.AreaName,
				Scope:     domain.ScopeWeek,
				SourceTag: "Model",
				Metro:     metro,
				Week:      week,
			},
		}
		c.Score = domain.ScoreCandidate(c, e.weights)
		out = append(out, c)
	}
	return out
}

func (e *Engine) persistObservation(ctx context.Context, f domain.AreaFeatures, summary domain.OutlookSummary) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.SaveObservation(ctx, domain.BuildObservation(f, summary)); err != nil {
		e.logger.Warn("observation persistence failed",
			"area_id", f.AreaID, "error", err)
	}
}

func (e *Engine) persistAlert(ctx context.Context, f domain.AreaFeatures, pre *domain.PreAlert, nowBlock *domain.NowBlock, todayBlock *domain.TodayBlock) {
	if e.snapshots == nil {
		return
	}
	window := domain.NowWindow(nowBlock)
	if window.IsZero() {
		window = todayBlock.Window
	}
	a := domain.Alert{
		AreaID:      f.AreaID,
		Scope:       domain.ScopeNow,
		IssuedAt:    clock.Now(),
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Severity:    pre.Severity,
		Confidence:  pre.Confidence,
		Sources:     pre.Sources,
	}
	if err := e.snapshots.SaveAlert(ctx, a); err != nil {
		e.logger.Warn("alert persistence failed",
			"area_id", f.AreaID, "error", err)
	}
}

func (e *Engine) publishReport(ctx context.Context, r *governor.Report) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, r); err != nil {
		e.logger.Warn("report publication failed",
			"cycle_id", r.CycleID, "error", err)
	}
}

func nowLabel(n *domain.NowBlock) string {
	if n.EtaFromMin != nil && n.EtaToMin != nil {
		return fmt.Sprintf("in %d–%d min", *n.EtaFromMin, *n.EtaToMin)
	}
	return "now"
}

// peakDay picks the wettest forecast day, ties broken by earlier date.
func peakDay(week []domain.WeekDay) domain.WeekDay {
	best := week[0]
	for _, d := range week[1:] {
		if d.MmHigh > best.MmHigh {
			best = d
		}
	}
	return best
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
