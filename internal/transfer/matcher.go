// Package transfer flags movements of money between the merchant's own
// accounts so they are not counted as revenue.
package transfer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/id"
	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/similarity"
)

// onlineTransfer matches bank descriptions like
// "ONLINE TRANSFER FROM CHK ...4821 REF #IB0X".
var onlineTransfer = regexp.MustCompile(`(?i)online\s+transfer\s+(?:from|to)\s+(?:chk|sav|checking|savings)\b\D*?(\d{4,})`)

// AccountChecker reports whether a last-four account suffix belongs to the merchant.
type AccountChecker interface {
	KnownLastFour(lastFour string) bool
}

// Matcher detects internal transfers. Create with NewMatcher.
type Matcher struct {
	windowDays          int
	tolerance           decimal.Decimal
	phrases             []string
	boilerplate         map[string]bool
	sameEntityThreshold float64
	accounts            AccountChecker
	scorer              similarity.Scorer
	log                 zerolog.Logger
}

// NewMatcher builds a Matcher from transfer settings. accounts may be nil,
// in which case no "online transfer ... ####" description is trusted.
func NewMatcher(cfg config.TransferConfig, accounts AccountChecker, scorer similarity.Scorer, log zerolog.Logger) *Matcher {
	if scorer == nil {
		scorer = similarity.Levenshtein{}
	}
	boilerplate := make(map[string]bool, len(cfg.BoilerplateWords))
	for _, w := range cfg.BoilerplateWords {
		boilerplate[strings.ToUpper(strings.TrimSpace(w))] = true
	}
	phrases := make([]string, 0, len(cfg.ExplicitPhrases))
	for _, p := range cfg.ExplicitPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Matcher{
		windowDays:          cfg.WindowDays,
		tolerance:           decimal.NewFromFloat(cfg.AmountTolerance),
		phrases:             phrases,
		boilerplate:         boilerplate,
		sameEntityThreshold: cfg.SameEntityThreshold,
		accounts:            accounts,
		scorer:              scorer,
		log:                 log,
	}
}

// Match returns a copy of txns with transfer flags recomputed. The input
// slice is not modified.
func (m *Matcher) Match(txns []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, len(txns))
	copy(out, txns)
	for i := range out {
		out[i].IsInternalTransfer = false
		out[i].MatchedTransferID = ""
		out[i].TransferReason = ""
	}

	for i := range out {
		if m.isExplicit(out[i].Description) {
			out[i].IsInternalTransfer = true
			out[i].TransferReason = model.ReasonExplicitPattern
		}
	}

	m.matchAmounts(out)
	return out
}

func (m *Matcher) isExplicit(desc string) bool {
	lower := strings.ToLower(desc)
	for _, p := range m.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	match := onlineTransfer.FindStringSubmatch(desc)
	if match == nil || m.accounts == nil {
		return false
	}
	digits := match[1]
	return m.accounts.KnownLastFour(digits[len(digits)-4:])
}

func (m *Matcher) matchAmounts(txns []model.Transaction) {
	var debits []int
	pool := make(map[int]bool)
	for i, t := range txns {
		if t.IsInternalTransfer || t.DateMissing || t.Amount.IsZero() {
			continue
		}
		if t.IsDebit() {
			debits = append(debits, i)
		} else {
			pool[i] = true
		}
	}
	sort.SliceStable(debits, func(a, b int) bool {
		return earlier(txns[debits[a]], txns[debits[b]])
	})

	for _, di := range debits {
		debit := txns[di]
		for _, ci := range m.candidates(txns, debit, pool) {
			credit := txns[ci]
			if m.relatedEntities(debit.Description, credit.Description) {
				m.log.Debug().
					Str("debit", debit.ID).
					Str("credit", credit.ID).
					Msg("related entities, not a transfer")
				continue
			}
			pair(&txns[di], &txns[ci])
			delete(pool, ci)
			break
		}
	}
}

// candidates returns unmatched credits on another account within tolerance
// and window, nearest date first, lowest id on ties.
func (m *Matcher) candidates(txns []model.Transaction, debit model.Transaction, pool map[int]bool) []int {
	x := debit.Magnitude()
	limit := x.Mul(m.tolerance)

	var found []int
	for ci := range pool {
		c := txns[ci]
		if c.SourceAccountID == debit.SourceAccountID {
			continue
		}
		if c.Magnitude().Sub(x).Abs().GreaterThan(limit) {
			continue
		}
		if dayGap(debit.Date, c.Date) > m.windowDays {
			continue
		}
		found = append(found, ci)
	}
	sort.Slice(found, func(a, b int) bool {
		ga, gb := dayGap(debit.Date, txns[found[a]].Date), dayGap(debit.Date, txns[found[b]].Date)
		if ga != gb {
			return ga < gb
		}
		return id.Less(txns[found[a]].ID, txns[found[b]].ID)
	})
	return found
}

// relatedEntities reports whether two descriptions name distinct businesses
// that share a significant word, e.g. "Big World Enterprises" and
// "Big World Travel".
func (m *Matcher) relatedEntities(a, b string) bool {
	ea, eb := m.entityTokens(a), m.entityTokens(b)
	inB := make(map[string]bool, len(eb))
	for _, t := range eb {
		inB[t] = true
	}
	shared := false
	for _, t := range ea {
		if inB[t] && significant(t) {
			shared = true
			break
		}
	}
	if !shared {
		return false
	}
	return m.scorer.Score(strings.Join(ea, " "), strings.Join(eb, " ")) < m.sameEntityThreshold
}

func (m *Matcher) entityTokens(desc string) []string {
	var out []string
	for _, t := range similarity.Tokens(desc) {
		if m.boilerplate[t] || isNumber(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func pair(debit, credit *model.Transaction) {
	if debit.MatchedTransferID != "" || credit.MatchedTransferID != "" {
		panic(fmt.Sprintf("transfer: double match attempt %s <-> %s", debit.ID, credit.ID))
	}
	debit.IsInternalTransfer, credit.IsInternalTransfer = true, true
	debit.MatchedTransferID, credit.MatchedTransferID = credit.ID, debit.ID
	debit.TransferReason, credit.TransferReason = model.ReasonMatchedAmount, model.ReasonMatchedAmount
}

func earlier(a, b model.Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return id.Less(a.ID, b.ID)
}

func dayGap(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Round(time.Hour).Hours() / 24)
}

func significant(token string) bool {
	if len([]rune(token)) < 3 {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isNumber(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
