// Package governor decides which notification candidates become posts. It is
// the only component with write access to the dedup store, the budget
// counters, and the decision log, and it evaluates every candidate through a
// fixed gate order: dedup, budget, rank-and-select, cooldown, hourly cap,
// publish. A candidate that fails any gate stops there with a terminal
// outcome.
package governor

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/format"
	"github.com/couchcryptid/rain-alert-service/internal/observability"
)

const (
	dedupKeyPrefix  = "notify:hash:"
	budgetKeyPrefix = "notify:budget:"

	budgetTTL = 24 * time.Hour
)

var clock = clockwork.NewRealClock()

// SetClock swaps the governor's time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Policy holds the governance limits for one deployment.
type Policy struct {
	// MinGap is the dedup TTL: identical content within this window is
	// rejected.
	MinGap time.Duration
	// DailyBudget caps accepted posts per UTC day.
	DailyBudget int
	// CycleCap caps accepted posts per cycle.
	CycleCap int
	// Cooldown is the per-area quiet period after an accepted post.
	Cooldown time.Duration
	// EtaShift is the minimum window movement that counts as an escalation
	// for immediate-scope candidates still inside cooldown.
	EtaShift time.Duration
	// HourlyCap caps posts over any trailing hour; excess approved
	// candidates are held, not rejected.
	HourlyCap int

	// PostEnabled routes approved candidates to the live poster. When
	// false every approval is dry-logged.
	PostEnabled bool
	// PostTimeout bounds one publish attempt.
	PostTimeout time.Duration
	// FormatterTimeout bounds one primary-formatter call before falling
	// back to deterministic rendering.
	FormatterTimeout time.Duration
}

// Governor runs the governance pass. Construct with New; the formatter is
// optional (nil means fallback-only rendering).
type Governor struct {
	kv        KeyValueStore
	log       DecisionLog
	poster    Poster
	formatter Formatter
	policy    Policy
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New builds a Governor. poster may be nil when policy.PostEnabled is false;
// formatter may always be nil.
func New(kv KeyValueStore, decisionLog DecisionLog, poster Poster, formatter Formatter, policy Policy, logger *slog.Logger, metrics *observability.Metrics) *Governor {
	return &Governor{
		kv:        kv,
		log:       decisionLog,
		poster:    poster,
		formatter: formatter,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
	}
}

// work carries one candidate through the gates.
type work struct {
	cand     domain.Candidate
	hash     string
	replyTo  string
	decision Decision
	done     bool
}

// Govern evaluates candidates through the gate pipeline and returns a report
// with one decision per candidate. It never returns early: store failures
// degrade the pass (suppressing affected candidates) instead of aborting it.
func (g *Governor) Govern(ctx context.Context, cycleID string, candidates []domain.Candidate) *Report {
	now := clock.Now()
	report := &Report{CycleID: cycleID, StartedAt: now}

	items := make([]*work, 0, len(candidates))
	for _, c := range candidates {
		g.metrics.CandidatesEvaluated.WithLabelValues(string(c.Scope)).Inc()
		items = append(items, &work{
			cand: c,
			hash: c.Hash(),
			decision: Decision{
				AreaID:      c.AreaID,
				Scope:       c.Scope,
				Bucket:      c.Bucket,
				WindowLabel: c.WindowLabel,
				Score:       c.Score,
			},
		})
	}

	g.gateDedup(ctx, items, report)
	g.gateBudget(ctx, items, report, now)
	g.gateSelect(items)
	g.gateCooldown(ctx, items, report, now)
	g.publish(ctx, items, report, now)

	for _, w := range items {
		g.metrics.DecisionOutcomes.WithLabelValues(string(w.decision.Outcome)).Inc()
		report.Decisions = append(report.Decisions, w.decision)
	}
	report.FinishedAt = clock.Now()
	return report
}

func (w *work) finish(outcome Outcome, reason string) {
	w.decision.Outcome = outcome
	w.decision.Reason = reason
	w.done = true
}

func (g *Governor) degrade(report *Report, w *work, op string, err error) {
	report.Degraded = true
	g.metrics.StoreDegradations.Inc()
	g.logger.Error("governance store unavailable, suppressing candidate",
		slog.String("op", op),
		slog.String("areaId", w.cand.AreaID),
		slog.String("error", err.Error()))
	w.finish(OutcomeSuppressed, op+": "+err.Error())
}

// gateDedup rejects candidates whose content hash was posted within MinGap.
func (g *Governor) gateDedup(ctx context.Context, items []*work, report *Report) {
	for _, w := range items {
		if w.done {
			continue
		}
		_, exists, err := g.kv.Get(ctx, dedupKeyPrefix+w.hash)
		if err != nil {
			g.degrade(report, w, "dedup", err)
			continue
		}
		if exists {
			w.finish(OutcomeRejectedDedup, "identical content within min gap")
		}
	}
}

// gateBudget rejects everything once the daily counter is exhausted. The
// counter is only incremented at publish time, so a rejected-later candidate
// never consumes budget.
func (g *Governor) gateBudget(ctx context.Context, items []*work, report *Report, now time.Time) {
	key := budgetKey(now)
	for _, w := range items {
		if w.done {
			continue
		}
		v, exists, err := g.kv.Get(ctx, key)
		if err != nil {
			g.degrade(report, w, "budget", err)
			continue
		}
		if exists && atoiSafe(v) >= g.policy.DailyBudget {
			w.finish(OutcomeRejectedBudget, "daily budget exhausted")
		}
	}
}

// gateSelect ranks survivors by score and keeps at most CycleCap of them,
// with at most one per group key. Severe metro candidates relax the metro
// group limit to two.
func (g *Governor) gateSelect(items []*work) {
	open := make([]*work, 0, len(items))
	for _, w := range items {
		if !w.done {
			open = append(open, w)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].cand.Score != open[j].cand.Score {
			return open[i].cand.Score > open[j].cand.Score
		}
		return open[i].cand.AreaID < open[j].cand.AreaID
	})

	selected := 0
	groupCounts := make(map[string]int)
	for _, w := range open {
		if selected >= g.policy.CycleCap {
			w.finish(OutcomeRejectedCap, "cycle cap reached")
			continue
		}
		limit := 1
		if w.cand.Metro && w.cand.Severe {
			limit = 2
		}
		if groupCounts[w.cand.GroupKey] >= limit {
			w.finish(OutcomeRejectedCap, "group diversity cap")
			continue
		}
		groupCounts[w.cand.GroupKey]++
		selected++
	}
}

// gateCooldown rejects candidates for areas that posted recently, unless the
// new candidate escalates: a strictly heavier bucket, or an immediate-scope
// window that moved by more than EtaShift. Escalations thread as replies to
// the prior post.
func (g *Governor) gateCooldown(ctx context.Context, items []*work, report *Report, now time.Time) {
	for _, w := range items {
		if w.done {
			continue
		}
		prev, err := g.log.MostRecent(ctx, w.cand.AreaID)
		if err != nil {
			g.degrade(report, w, "cooldown", err)
			continue
		}
		if prev == nil || now.Sub(prev.CreatedAt) >= g.policy.Cooldown {
			continue
		}
		if g.escalates(w.cand, prev) {
			if prev.PostID != nil {
				w.replyTo = *prev.PostID
			}
			continue
		}
		w.finish(OutcomeRejectedCooldown, "area inside cooldown")
	}
}

func (g *Governor) escalates(c domain.Candidate, prev *LogEntry) bool {
	if c.Bucket.Rank() > prev.Bucket.Rank() {
		return true
	}
	if c.Scope != domain.ScopeNow || c.Window.IsZero() {
		return false
	}
	// A prior entry without window instants cannot anchor a shift
	// comparison; only a bucket increase escalates then.
	if prev.WindowStart == nil || prev.WindowEnd == nil {
		return false
	}
	shift := g.policy.EtaShift
	return absDuration(c.Window.Start.Sub(*prev.WindowStart)) > shift ||
		absDuration(c.Window.End.Sub(*prev.WindowEnd)) > shift
}

// publish runs the remaining candidates through the hourly cap, renders and
// submits each, and appends the log entry. The hourly cap holds candidates
// back without logging them, so they re-enter fresh next cycle.
func (g *Governor) publish(ctx context.Context, items []*work, report *Report, now time.Time) {
	recent, err := g.log.CountSince(ctx, now.Add(-time.Hour))
	if err != nil {
		for _, w := range items {
			if !w.done {
				g.degrade(report, w, "hourly", err)
			}
		}
		return
	}

	appended := 0
	for _, w := range items {
		if w.done {
			continue
		}
		if recent+appended >= g.policy.HourlyCap {
			w.finish(OutcomeHeld, "hourly cap, deferred to next cycle")
			continue
		}

		// Consume budget before submitting. Over-consumption on a race
		// is accepted; the increment is never rolled back.
		n, err := g.kv.IncrWithExpiry(ctx, budgetKey(now), budgetTTL)
		if err != nil {
			g.degrade(report, w, "budget", err)
			continue
		}
		if int(n) > g.policy.DailyBudget {
			w.finish(OutcomeRejectedBudget, "daily budget exhausted")
			continue
		}

		text := g.render(ctx, w.cand)
		post := format.Compose(text, w.cand.Payload.SourceTag)

		result, postID := g.submit(ctx, w, post)
		entry := LogEntry{
			AreaID:      w.cand.AreaID,
			Scope:       w.cand.Scope,
			Bucket:      w.cand.Bucket,
			WindowLabel: w.cand.WindowLabel,
			Hash:        w.hash,
			PostID:      postID,
			Result:      result,
			CreatedAt:   now,
		}
		if !w.cand.Window.IsZero() {
			start, end := w.cand.Window.Start, w.cand.Window.End
			entry.WindowStart, entry.WindowEnd = &start, &end
		}
		if err := g.log.Append(ctx, entry); err != nil {
			// The post is already out; losing the log row degrades
			// cooldown accuracy but must not fail the decision.
			report.Degraded = true
			g.metrics.StoreDegradations.Inc()
			g.logger.Error("decision log append failed",
				slog.String("areaId", w.cand.AreaID),
				slog.String("error", err.Error()))
		}
		if ok, err := g.kv.SetIfAbsent(ctx, dedupKeyPrefix+w.hash, "1", g.policy.MinGap); err != nil || !ok {
			g.logger.Warn("dedup marker not stored",
				slog.String("areaId", w.cand.AreaID))
		}
		appended++

		w.decision.Result = result
		w.decision.PostID = postID
		if result == ResultPosted {
			w.finish(OutcomePosted, "")
		} else {
			w.finish(OutcomeDryLogged, string(result))
		}
	}
}

// render produces the bilingual text, preferring the primary formatter and
// falling back to deterministic rendering on any failure.
func (g *Governor) render(ctx context.Context, c domain.Candidate) domain.BilingualText {
	if g.formatter == nil {
		g.metrics.FormatterFallbacks.Inc()
		return format.Fallback(c.Payload)
	}
	fctx, cancel := context.WithTimeout(ctx, g.policy.FormatterTimeout)
	defer cancel()

	start := clock.Now()
	text, err := g.formatter.Format(fctx, c.Payload)
	g.metrics.FormatterDuration.Observe(clock.Since(start).Seconds())
	if err != nil {
		g.metrics.FormatterFallbacks.Inc()
		g.logger.Warn("primary formatter failed, using fallback",
			slog.String("areaId", c.AreaID),
			slog.String("error", err.Error()))
		return format.Fallback(c.Payload)
	}
	return text
}

// submit performs the live post or records a dry run. A failed live post is
// logged as failed and the candidate is still consumed.
func (g *Governor) submit(ctx context.Context, w *work, post string) (PostResult, *string) {
	if !g.policy.PostEnabled || g.poster == nil {
		g.metrics.PostsSubmitted.WithLabelValues(string(ResultDryRun)).Inc()
		g.logger.Info("dry run",
			slog.String("areaId", w.cand.AreaID),
			slog.String("scope", string(w.cand.Scope)),
			slog.String("text", post))
		return ResultDryRun, nil
	}

	pctx, cancel := context.WithTimeout(ctx, g.policy.PostTimeout)
	defer cancel()

	postID, err := g.poster.Post(pctx, post, w.replyTo)
	if err != nil {
		g.metrics.PostsSubmitted.WithLabelValues(string(ResultFailed)).Inc()
		g.logger.Error("post submission failed",
			slog.String("areaId", w.cand.AreaID),
			slog.String("error", err.Error()))
		return ResultFailed, nil
	}
	g.metrics.PostsSubmitted.WithLabelValues(string(ResultPosted)).Inc()
	g.logger.Info("posted",
		slog.String("areaId", w.cand.AreaID),
		slog.String("scope", string(w.cand.Scope)),
		slog.String("postId", postID))
	return ResultPosted, &postID
}

func budgetKey(now time.Time) string {
	return budgetKeyPrefix + now.UTC().Format("2006-01-02")
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
