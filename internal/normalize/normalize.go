// Package normalize coerces raw extracted transaction records into canonical
// model.Transaction values. Normalization never fails: malformed input
// degrades to safe defaults and is logged for audit.
package normalize

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/id"
	"github.com/mcarecon/mcarecon/internal/model"
)

// DefaultMaxDescriptionLength caps description length in runes.
const DefaultMaxDescriptionLength = 500

// DefaultAccountID is assigned when a record names no source account.
const DefaultAccountID = "default"

// DefaultCategory is assigned when a record has no category.
const DefaultCategory = "other"

const isoDate = "2006-01-02"

// Epoch is the sentinel date for records without a parseable date.
var Epoch = time.Unix(0, 0).UTC()

var dateLayouts = []string{
	isoDate,
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Normalizer converts raw records to transactions.
type Normalizer struct {
	MaxDescriptionLength int
	Log                  zerolog.Logger
}

// New returns a Normalizer with the given description cap.
func New(maxDescriptionLength int, log zerolog.Logger) *Normalizer {
	if maxDescriptionLength <= 0 {
		maxDescriptionLength = DefaultMaxDescriptionLength
	}
	return &Normalizer{MaxDescriptionLength: maxDescriptionLength, Log: log}
}

// Normalize converts raw records with default settings and no logging.
func Normalize(raw []model.RawRecord) []model.Transaction {
	return New(DefaultMaxDescriptionLength, zerolog.Nop()).Normalize(raw)
}

// Normalize converts raw records in order. IDs are kept when present and
// unique; otherwise a sequential ID derived from the record position is used.
func (n *Normalizer) Normalize(raw []model.RawRecord) []model.Transaction {
	txns := make([]model.Transaction, 0, len(raw))
	used := make(map[string]bool, len(raw))

	for i, rec := range raw {
		txnID := strings.TrimSpace(string(rec.ID))
		if txnID == "" || used[txnID] {
			txnID = synthesizeID(i+1, used)
		}
		used[txnID] = true

		txn := model.Transaction{
			ID:              txnID,
			Description:     n.truncate(strings.TrimSpace(rec.Description)),
			SourceAccountID: strings.TrimSpace(string(rec.SourceAccountID)),
			Category:        strings.ToLower(strings.TrimSpace(rec.Category)),
		}
		if txn.SourceAccountID == "" {
			txn.SourceAccountID = DefaultAccountID
		}
		if txn.Category == "" {
			txn.Category = DefaultCategory
		}

		date, ok := ParseDate(rec.Date)
		if !ok {
			n.Log.Warn().Str("txn", txnID).Str("date", rec.Date).Msg("unparseable date, using epoch sentinel")
			date = Epoch
			txn.DateMissing = true
		}
		txn.Date = date

		amount, ok := ParseAmount(string(rec.Amount))
		if !ok {
			n.Log.Warn().Str("txn", txnID).Str("amount", string(rec.Amount)).Msg("malformed amount, defaulting to 0")
			txn.AmountMalformed = true
		}
		txn.Direction, txn.Amount = resolveDirection(rec.Type, amount)

		txns = append(txns, txn)
	}
	return txns
}

// ToRaw renders a canonical transaction back into a raw record. Normalizing
// the result reproduces the transaction's canonical fields.
func ToRaw(t model.Transaction) model.RawRecord {
	rec := model.RawRecord{
		ID:              model.RawValue(t.ID),
		Description:     t.Description,
		Type:            string(t.Direction),
		SourceAccountID: model.RawValue(t.SourceAccountID),
		Category:        t.Category,
	}
	if !t.DateMissing {
		rec.Date = t.Date.Format(isoDate)
	}
	if !t.AmountMalformed {
		rec.Amount = model.RawValue(t.Amount.String())
	}
	return rec
}

// ParseDate tries the known statement date layouts and returns the date at
// midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Direction words for ParseDirection, matched as whole words. A credit
// marker decides on its own ("payment received"); otherwise a flag naming
// both sides ("credit card payment") is ambiguous.
var (
	debitWords = map[string]bool{
		"debit": true, "debits": true, "withdrawal": true, "withdrawals": true,
		"payment": true, "payments": true, "pmt": true, "check": true, "checks": true,
		"fee": true, "fees": true, "charge": true, "purchase": true,
	}
	creditWords = map[string]bool{
		"credit": true, "credits": true, "deposit": true, "deposits": true,
		"addition": true, "additions": true, "dslip": true,
	}
	creditMarkers = map[string]bool{
		"received": true, "incoming": true, "refund": true, "reversal": true,
	}
)

// ParseDirection interprets an extractor's type flag. ok is false when the
// flag is absent, unrecognized or ambiguous.
func ParseDirection(s string) (model.Direction, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return "", false
	case "dr", "d", "out", "outflow":
		return model.Debit, true
	case "cr", "c", "in", "inflow":
		return model.Credit, true
	}
	var debit, credit bool
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if creditMarkers[w] {
			return model.Credit, true
		}
		debit = debit || debitWords[w]
		credit = credit || creditWords[w]
	}
	switch {
	case debit && !credit:
		return model.Debit, true
	case credit && !debit:
		return model.Credit, true
	}
	return "", false
}

// resolveDirection applies the explicit flag over the amount sign.
func resolveDirection(typ string, amount decimal.Decimal) (model.Direction, decimal.Decimal) {
	if dir, ok := ParseDirection(typ); ok {
		if dir == model.Debit {
			return dir, amount.Abs().Neg()
		}
		return dir, amount.Abs()
	}
	if amount.IsNegative() {
		return model.Debit, amount
	}
	return model.Credit, amount
}

func (n *Normalizer) truncate(s string) string {
	if utf8.RuneCountInString(s) <= n.MaxDescriptionLength {
		return s
	}
	return string([]rune(s)[:n.MaxDescriptionLength])
}

func synthesizeID(seq int, used map[string]bool) string {
	candidate := id.FormatTxnID(seq)
	for suffix := 2; used[candidate]; suffix++ {
		candidate = fmt.Sprintf("%s-%d", id.FormatTxnID(seq), suffix)
	}
	return candidate
}
