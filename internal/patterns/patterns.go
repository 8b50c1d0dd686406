// Package patterns finds recurring debits, payment changes over time and
// known-vendor matches in a set of normalized transactions.
package patterns

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/similarity"
)

// Cadences beyond the position frequencies.
const (
	Irregular model.Frequency = "irregular"
	Unknown   model.Frequency = "unknown"
)

// Average-gap cutoffs in days.
const (
	dailyMaxGap   = 2.0
	weeklyMaxGap  = 10.0
	monthlyMaxGap = 35.0
)

const maxSamples = 5

// ChangeKind names a change in a recurring debit.
type ChangeKind string

const (
	PausedResumed ChangeKind = "paused_resumed"
	Refinanced    ChangeKind = "refinanced"
)

// Recurring is a daily or weekly debit group.
type Recurring struct {
	Key             string
	Frequency       model.Frequency
	AverageAmount   decimal.Decimal
	OccurrenceCount int
	SampleDates     []time.Time
}

// Change is a pause or an amount change between consecutive debits of one
// group. GapDays is set for PausedResumed; the amounts for Refinanced.
type Change struct {
	Key       string
	Kind      ChangeKind
	From      time.Time
	To        time.Time
	GapDays   int
	OldAmount decimal.Decimal
	NewAmount decimal.Decimal
	ChangePct decimal.Decimal // percent, two places
}

// Categorized pairs a transaction with the vendor it matched.
type Categorized struct {
	TransactionID string
	Vendor        config.Vendor
}

// UnknownRecurring is a repeated debit that matched no known vendor and
// needs review.
type UnknownRecurring struct {
	Key                string
	Name               string
	AverageAmount      decimal.Decimal
	OccurrenceCount    int
	SampleDates        []time.Time
	SampleDescriptions []string
}

// Report is the output of Analyze.
type Report struct {
	Recurring        []Recurring
	Changes          []Change
	Categorized      []Categorized
	Unknown          []string // transaction ids with no vendor match
	UnknownRecurring []UnknownRecurring
}

var (
	longNumber = regexp.MustCompile(`\d{4,}`)
	hashNumber = regexp.MustCompile(`#\d+`)
	spaces     = regexp.MustCompile(`\s+`)
)

// GroupKey normalizes a description for grouping: upper case, runs of four
// or more digits masked as XXXX, "#123" references dropped.
func GroupKey(desc string) string {
	key := strings.ToUpper(strings.TrimSpace(desc))
	key = longNumber.ReplaceAllString(key, "XXXX")
	key = hashNumber.ReplaceAllString(key, "")
	key = spaces.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}

// Analyzer runs pattern detection. It is safe for concurrent use.
type Analyzer struct {
	cfg     config.PatternConfig
	vendors *VendorMatcher
}

// New builds an Analyzer. Fuzzy vendor matches are scored with scorer.
func New(cfg config.PatternConfig, scorer similarity.Scorer) *Analyzer {
	return &Analyzer{cfg: cfg, vendors: NewVendorMatcher(cfg.Vendors, scorer, cfg.FuzzyThreshold)}
}

type group struct {
	key   string
	txns  []model.Transaction
	dated []model.Transaction // date-sorted, sentinel dates removed
}

// Analyze inspects the non-transfer debits of txns. Groups are reported in
// key order.
func (a *Analyzer) Analyze(txns []model.Transaction) Report {
	var debits []model.Transaction
	for _, t := range txns {
		if t.IsDebit() && !t.IsInternalTransfer && !t.Amount.IsZero() {
			debits = append(debits, t)
		}
	}

	var r Report
	for _, g := range groupByKey(debits) {
		if len(g.txns) >= a.cfg.MinRecurring {
			if rec, ok := recurring(g); ok {
				r.Recurring = append(r.Recurring, rec)
			}
		}
		if len(g.txns) >= a.cfg.MinStopStart {
			r.Changes = append(r.Changes, a.changes(g)...)
		}
	}

	var unknown []model.Transaction
	for _, t := range debits {
		if v, ok := a.vendors.Match(t.Description); ok {
			r.Categorized = append(r.Categorized, Categorized{TransactionID: t.ID, Vendor: v})
			continue
		}
		r.Unknown = append(r.Unknown, t.ID)
		unknown = append(unknown, t)
	}
	for _, g := range groupByKey(unknown) {
		if len(g.txns) >= a.cfg.MinUnknownRecurring {
			r.UnknownRecurring = append(r.UnknownRecurring, unknownRecurring(g))
		}
	}
	return r
}

func groupByKey(txns []model.Transaction) []*group {
	byKey := make(map[string]*group)
	var keys []string
	for _, t := range txns {
		key := GroupKey(t.Description)
		if key == "" {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			keys = append(keys, key)
		}
		g.txns = append(g.txns, t)
		if !t.DateMissing {
			g.dated = append(g.dated, t)
		}
	}
	sort.Strings(keys)

	out := make([]*group, len(keys))
	for i, k := range keys {
		g := byKey[k]
		sort.SliceStable(g.dated, func(i, j int) bool { return g.dated[i].Date.Before(g.dated[j].Date) })
		out[i] = g
	}
	return out
}

func recurring(g *group) (Recurring, bool) {
	freq := Cadence(dates(g.dated))
	if freq != model.Daily && freq != model.Weekly {
		return Recurring{}, false
	}
	return Recurring{
		Key:             g.key,
		Frequency:       freq,
		AverageAmount:   average(g.txns),
		OccurrenceCount: len(g.txns),
		SampleDates:     samples(g.dated),
	}, true
}

func (a *Analyzer) changes(g *group) []Change {
	limit := decimal.NewFromFloat(a.cfg.RefinanceChange)
	hundred := decimal.NewFromInt(100)

	var out []Change
	for i := 1; i < len(g.dated); i++ {
		prev, cur := g.dated[i-1], g.dated[i]
		gap := int(cur.Date.Sub(prev.Date).Hours() / 24)
		if gap > a.cfg.PauseGapDays {
			out = append(out, Change{Key: g.key, Kind: PausedResumed, From: prev.Date, To: cur.Date, GapDays: gap})
		}

		old, now := prev.Magnitude(), cur.Magnitude()
		change := now.Sub(old).Abs().Div(old)
		if change.GreaterThan(limit) {
			out = append(out, Change{
				Key:       g.key,
				Kind:      Refinanced,
				From:      prev.Date,
				To:        cur.Date,
				OldAmount: old,
				NewAmount: now,
				ChangePct: change.Mul(hundred).Round(2),
			})
		}
	}
	return out
}

func unknownRecurring(g *group) UnknownRecurring {
	var descs []string
	for _, t := range g.txns {
		if len(descs) == 3 {
			break
		}
		descs = append(descs, t.Description)
	}
	return UnknownRecurring{
		Key:                g.key,
		Name:               cases.Title(language.English).String(strings.ToLower(g.key)),
		AverageAmount:      average(g.txns),
		OccurrenceCount:    len(g.txns),
		SampleDates:        samples(g.dated),
		SampleDescriptions: descs,
	}
}

// Cadence classifies sorted dates by the average of the positive gaps
// between them. Same-day repeats do not count as gaps.
func Cadence(sorted []time.Time) model.Frequency {
	var total float64
	var n int
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Sub(sorted[i-1]).Hours() / 24
		if gap > 0 {
			total += gap
			n++
		}
	}
	if n == 0 {
		return Unknown
	}
	switch avg := total / float64(n); {
	case avg <= dailyMaxGap:
		return model.Daily
	case avg <= weeklyMaxGap:
		return model.Weekly
	case avg <= monthlyMaxGap:
		return model.Monthly
	default:
		return Irregular
	}
}

func dates(txns []model.Transaction) []time.Time {
	out := make([]time.Time, len(txns))
	for i, t := range txns {
		out[i] = t.Date
	}
	return out
}

func samples(txns []model.Transaction) []time.Time {
	return dates(txns[:min(len(txns), maxSamples)])
}

func average(txns []model.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txns {
		sum = sum.Add(t.Magnitude())
	}
	return sum.Div(decimal.NewFromInt(int64(len(txns)))).Round(2)
}
