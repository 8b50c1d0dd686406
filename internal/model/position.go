package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the inferred payment cadence of a position.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Position is an inferred, currently active MCA obligation.
type Position struct {
	LenderName      string
	Amount          decimal.Decimal // per occurrence
	Frequency       Frequency
	MonthlyPayment  decimal.Decimal
	OccurrenceCount int
	IsStacked       bool
	StackCount      int
	FirstSeen       time.Time
	LastSeen        time.Time
	TransactionIDs  []string
}
