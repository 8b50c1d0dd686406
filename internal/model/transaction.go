package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the authoritative money-flow side of a transaction.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Transfer classification reasons.
const (
	ReasonExplicitPattern = "explicit_pattern"
	ReasonMatchedAmount   = "matched_amount"
)

// Transaction is a normalized bank-statement row.
type Transaction struct {
	ID              string
	Date            time.Time
	DateMissing     bool // Date holds the epoch sentinel
	Description     string
	Amount          decimal.Decimal // positive = inflow, negative = outflow
	Direction       Direction
	SourceAccountID string
	Category        string // income, payment, diesel, transfer, other
	AmountMalformed bool

	IsInternalTransfer bool
	MatchedTransferID  string // empty when unmatched
	TransferReason     string

	IsLenderPayment bool
}

// Magnitude returns |Amount|.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// IsDebit reports whether money left the account.
func (t Transaction) IsDebit() bool { return t.Direction == Debit }

// IsCredit reports whether money entered the account.
func (t Transaction) IsCredit() bool { return t.Direction == Credit }

// HasCategory compares the category case-insensitively.
func (t Transaction) HasCategory(category string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Category), category)
}

// RawValue is a loosely typed scalar from an extractor: JSON strings and
// numbers both decode into it.
type RawValue string

// UnmarshalJSON accepts strings, numbers and null.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	}
	*v = RawValue(strings.TrimSpace(string(data)))
	return nil
}

// RawRecord is a transaction as produced by an extraction collaborator.
// Every field is optional.
type RawRecord struct {
	ID              RawValue `json:"id,omitempty"`
	Date            string   `json:"date,omitempty"`
	Description     string   `json:"description,omitempty"`
	Amount          RawValue `json:"amount,omitempty"`
	Type            string   `json:"type,omitempty"`
	SourceAccountID RawValue `json:"source_account_id,omitempty"`
	Category        string   `json:"category,omitempty"`
}
