// Package positions infers active merchant-cash-advance obligations from
// recurring lender debits and flags stacked positions.
package positions

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/id"
	"github.com/mcarecon/mcarecon/internal/model"
)

// Monthly payment multipliers per frequency.
var (
	dailyFactor   = decimal.NewFromInt(22)
	weeklyFactor  = decimal.RequireFromString("4.33")
	monthlyFactor = decimal.NewFromInt(1)
)

// Average-gap cutoffs in days.
const (
	dailyMaxGap  = 2.0
	weeklyMaxGap = 10.0
)

// Detector clusters lender debits into positions. Create with NewDetector.
type Detector struct {
	lexicon        *Lexicon
	tolerance      decimal.Decimal
	minOccurrences int
	payoff         []string
	log            zerolog.Logger
}

// NewDetector builds a Detector from position settings.
func NewDetector(cfg config.PositionConfig, log zerolog.Logger) *Detector {
	minOcc := cfg.MinOccurrences
	if minOcc < 1 {
		minOcc = 1
	}
	return &Detector{
		lexicon:        NewLexicon(cfg.LenderKeywords, cfg.DenyKeywords, cfg.NamePrefixes, cfg.NoiseWords, cfg.NameTokens),
		tolerance:      decimal.NewFromFloat(cfg.AmountTolerance),
		minOccurrences: minOcc,
		payoff:         normalizePhrases(cfg.PayoffKeywords),
		log:            log,
	}
}

// Lexicon returns the detector's lender lexicon.
func (d *Detector) Lexicon() *Lexicon { return d.lexicon }

type cluster struct {
	representative decimal.Decimal
	members        []int
}

type lenderGroup struct {
	name     string
	clusters []*cluster
}

// Detect returns the positions found in txns, ordered by lender first
// appearance and then cluster creation, together with a copy of txns in
// which members of those positions have IsLenderPayment set.
func (d *Detector) Detect(txns []model.Transaction) ([]model.Position, []model.Transaction) {
	out := make([]model.Transaction, len(txns))
	copy(out, txns)
	for i := range out {
		out[i].IsLenderPayment = false
	}

	var candidates []int
	for i, t := range out {
		if !t.IsDebit() || t.IsInternalTransfer || t.DateMissing || t.Amount.IsZero() {
			continue
		}
		if d.lexicon.IsLender(t.Description) {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		ta, tb := out[candidates[a]], out[candidates[b]]
		if !ta.Date.Equal(tb.Date) {
			return ta.Date.Before(tb.Date)
		}
		return id.Less(ta.ID, tb.ID)
	})

	var groups []*lenderGroup
	byName := make(map[string]*lenderGroup)
	for _, i := range candidates {
		name := d.lexicon.LenderName(out[i].Description)
		if name == "" {
			d.log.Debug().Str("txn", out[i].ID).Msg("lender keyword without usable name")
			continue
		}
		g, ok := byName[name]
		if !ok {
			g = &lenderGroup{name: name}
			byName[name] = g
			groups = append(groups, g)
		}
		d.assign(g, i, out[i].Magnitude())
	}

	var positions []model.Position
	for _, g := range groups {
		var surviving []*cluster
		for _, c := range g.clusters {
			if len(c.members) >= d.minOccurrences {
				surviving = append(surviving, c)
			}
		}
		if len(surviving) == 0 {
			continue
		}

		stacked := len(surviving) >= 2
		if stacked && d.hasPayoff(out, g.name) {
			d.log.Info().Str("lender", g.name).Msg("payoff credit found, not treating positions as stacked")
			stacked = false
		}
		stackCount := 1
		if stacked {
			stackCount = len(surviving)
		}

		for _, c := range surviving {
			p := d.position(out, g.name, c)
			p.IsStacked = stacked
			p.StackCount = stackCount
			positions = append(positions, p)
			for _, i := range c.members {
				out[i].IsLenderPayment = true
			}
		}
	}
	return positions, out
}

// assign adds txn i to the first cluster whose representative is within
// tolerance, or opens a new one. Representatives never move.
func (d *Detector) assign(g *lenderGroup, i int, amount decimal.Decimal) {
	for _, c := range g.clusters {
		if amount.Sub(c.representative).Abs().LessThanOrEqual(c.representative.Mul(d.tolerance)) {
			c.members = append(c.members, i)
			return
		}
	}
	g.clusters = append(g.clusters, &cluster{representative: amount, members: []int{i}})
}

func (d *Detector) position(txns []model.Transaction, lender string, c *cluster) model.Position {
	dates := make([]time.Time, len(c.members))
	ids := make([]string, len(c.members))
	for k, i := range c.members {
		dates[k] = txns[i].Date
		ids[k] = txns[i].ID
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })

	freq := ClassifyFrequency(dates)
	return model.Position{
		LenderName:      lender,
		Amount:          c.representative,
		Frequency:       freq,
		MonthlyPayment:  MonthlyPayment(c.representative, freq),
		OccurrenceCount: len(c.members),
		FirstSeen:       dates[0],
		LastSeen:        dates[len(dates)-1],
		TransactionIDs:  ids,
	}
}

func (d *Detector) hasPayoff(txns []model.Transaction, lender string) bool {
	for _, t := range txns {
		if !t.IsCredit() || !Mentions(t.Description, lender) {
			continue
		}
		norm := normalizeText(t.Description)
		for _, kw := range d.payoff {
			if containsPhrase(norm, kw) {
				return true
			}
		}
	}
	return false
}

// ClassifyFrequency infers cadence from the average gap between consecutive
// sorted dates. A single date is treated as monthly.
func ClassifyFrequency(sorted []time.Time) model.Frequency {
	if len(sorted) < 2 {
		return model.Monthly
	}
	span := sorted[len(sorted)-1].Sub(sorted[0]).Hours() / 24
	avg := span / float64(len(sorted)-1)
	switch {
	case avg <= dailyMaxGap:
		return model.Daily
	case avg <= weeklyMaxGap:
		return model.Weekly
	default:
		return model.Monthly
	}
}

// MonthlyPayment converts a per-occurrence amount to a monthly obligation.
func MonthlyPayment(amount decimal.Decimal, freq model.Frequency) decimal.Decimal {
	switch freq {
	case model.Daily:
		return amount.Mul(dailyFactor).Round(2)
	case model.Weekly:
		return amount.Mul(weeklyFactor).Round(2)
	default:
		return amount.Mul(monthlyFactor).Round(2)
	}
}

// TotalMonthly sums the monthly payments of positions.
func TotalMonthly(positions []model.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.MonthlyPayment)
	}
	return total
}

// CountByFrequency counts positions per cadence.
func CountByFrequency(positions []model.Position) map[model.Frequency]int {
	counts := make(map[model.Frequency]int, 3)
	for _, p := range positions {
		counts[p.Frequency]++
	}
	return counts
}

// Lenders returns the distinct lender names in position order.
func Lenders(positions []model.Position) []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range positions {
		key := strings.ToLower(p.LenderName)
		if !seen[key] {
			seen[key] = true
			names = append(names, p.LenderName)
		}
	}
	return names
}
