// Package format renders notification payloads as bilingual post text.
// The Fallback renderer is deterministic and total: whatever the payload
// looks like, it produces usable text, degrading to "?" placeholders rather
// than failing. It backs up the primary (LLM) formatter, which may error,
// time out, or be unconfigured.
package format

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

// MaxPostLength is the hard upper bound for a composed post.
const MaxPostLength = 280

var teluguIntensity = map[domain.Bucket]string{
	domain.BucketDrizzle:   "జల్లులు",
	domain.BucketLight:     "తేలిక",
	domain.BucketModerate:  "మోస్తరు",
	domain.BucketHeavy:     "భారీ",
	domain.BucketVeryHeavy: "అత్యంత భారీ",
}

var teluguWeekday = map[string]string{
	"Sun": "ఆది", "Mon": "సోమ", "Tue": "మంగళ", "Wed": "బుధ",
	"Thu": "గురు", "Fri": "శుక్ర", "Sat": "శని",
}

// Fallback renders a payload deterministically. It never fails.
func Fallback(p domain.NotifyPayload) domain.BilingualText {
	var en, te string
	switch p.Scope {
	case domain.ScopeNow:
		en, te = fallbackNow(p)
	case domain.ScopeToday:
		en, te = fallbackToday(p)
	default:
		en, te = fallbackWeek(p)
	}

	hashtags := []string{"#TelanganaWeather"}
	if p.Metro {
		hashtags = append(hashtags, "#HyderabadRains")
	}
	return domain.BilingualText{En: en, Te: te, Hashtags: hashtags}
}

func fallbackNow(p domain.NotifyPayload) (string, string) {
	n := p.Now
	if n == nil {
		n = &domain.NowBlock{}
	}
	var enParts, teParts []string
	if n.MmhHigh > 0 {
		enParts = append(enParts, fmt.Sprintf("%g–%g mm/h", n.MmhLow, n.MmhHigh))
		teParts = append(teParts, fmt.Sprintf("%g–%g మి.మీ/గం", n.MmhLow, n.MmhHigh))
	}
	if n.EtaFromMin != nil && n.EtaToMin != nil {
		enParts = append(enParts, fmt.Sprintf("in %d–%d min", *n.EtaFromMin, *n.EtaToMin))
		teParts = append(teParts, fmt.Sprintf("%d–%d నిమిషాల్లో", *n.EtaFromMin, *n.EtaToMin))
	}
	if n.Thunder {
		enParts = append(enParts, "thunder")
		teParts = append(teParts, "మెరుపులు")
	}
	if len(enParts) == 0 {
		enParts = append(enParts, fmt.Sprintf("%s rain expected", word(n.Intensity)))
		teParts = append(teParts, fmt.Sprintf("%s వర్షం అవకాశం", wordTe(n.Intensity)))
	}
	en := fmt.Sprintf("%s: %s.", p.Area, strings.Join(enParts, ", "))
	te := fmt.Sprintf("%s: %s.", p.Area, strings.Join(teParts, ", "))
	return en, te
}

func fallbackToday(p domain.NotifyPayload) (string, string) {
	t := p.Today
	if t == nil {
		t = &domain.TodayBlock{WindowLabel: "later today"}
	}
	win := t.WindowLabel
	if win == "" {
		win = "later today"
	}
	prob := "?"
	if t.MaxProb12h != nil {
		prob = fmt.Sprintf("%.0f%%", *t.MaxProb12h)
	}
	en := fmt.Sprintf("%s: %g–%g mm %s rain likely %s. %s conf.",
		p.Area, t.ThreeMmLow, t.ThreeMmHigh, word(t.Intensity), win, prob)
	te := fmt.Sprintf("%s: %g–%g మి.మీ %s వర్షం %sలో అవకాశం. %s నమ్మకం.",
		p.Area, t.ThreeMmLow, t.ThreeMmHigh, wordTe(t.Intensity), win, prob)
	return en, te
}

func fallbackWeek(p domain.NotifyPayload) (string, string) {
	days := p.Week
	if len(days) > 2 {
		days = days[:2]
	}
	if len(days) == 0 {
		en := fmt.Sprintf("%s: rain expected this week.", p.Area)
		te := fmt.Sprintf("%s: ఈ వారం వర్షం అవకాశం.", p.Area)
		return en, te
	}
	var enDays, teDays []string
	for _, d := range days {
		wd := d.Date.Format("Mon")
		enDays = append(enDays, fmt.Sprintf("%s %g–%g mm (%.0f%%)", wd, d.MmLow, d.MmHigh, d.MaxProb))
		teDays = append(teDays, fmt.Sprintf("%s %g–%g మి.మీ (%.0f%%)", teluguDay(wd), d.MmLow, d.MmHigh, d.MaxProb))
	}
	en := fmt.Sprintf("%s: %s.", p.Area, strings.Join(enDays, ", "))
	te := fmt.Sprintf("%s: %s.", p.Area, strings.Join(teDays, ", "))
	return en, te
}

// Compose joins the bilingual lines, hashtags, and source tag into the final
// post text, clamped to MaxPostLength.
func Compose(text domain.BilingualText, sourceTag string) string {
	tags := strings.Join(text.Hashtags, " ")
	if sourceTag != "" {
		tags = strings.TrimSpace(tags + " (" + sourceTag + ")")
	}
	post := strings.TrimSpace(text.En + "\n" + text.Te + "\n" + tags)
	if len([]rune(post)) > MaxPostLength {
		post = string([]rune(post)[:MaxPostLength])
	}
	return post
}

func word(b domain.Bucket) string {
	if b == "" || b == domain.BucketNone {
		return "?"
	}
	return string(b)
}

func wordTe(b domain.Bucket) string {
	if w, ok := teluguIntensity[b]; ok {
		return w
	}
	return "సన్నని"
}

func teluguDay(eng string) string {
	if w, ok := teluguWeekday[eng]; ok {
		return w
	}
	return eng
}
