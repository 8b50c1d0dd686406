package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/mcarecon/mcarecon/internal/model"
)

// ChaseParser parses Chase bank checking CSV exports:
// Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
type ChaseParser struct {
	AccountID string
}

const (
	chaseNumFields = 7
	chaseColDetail = 0
	chaseColDate   = 1
	chaseColDesc   = 2
	chaseColAmount = 3
	chaseColType   = 4
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns raw records.
func (p *ChaseParser) Parse(r io.Reader) ([]model.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	txns := make([]model.RawRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		txns = append(txns, p.parseRow(rec))
	}
	return txns, nil
}

// parseRow maps the Details column (DEBIT, CREDIT, CHECK, DSLIP) to the
// direction flag and keeps the ACH type as the category hint.
func (p *ChaseParser) parseRow(rec []string) model.RawRecord {
	direction := ""
	switch strings.ToUpper(strings.TrimSpace(rec[chaseColDetail])) {
	case "DEBIT", "CHECK":
		direction = "debit"
	case "CREDIT", "DSLIP":
		direction = "credit"
	}

	category := ""
	if strings.Contains(strings.ToUpper(rec[chaseColType]), "LOAN") {
		category = "payment"
	}

	return model.RawRecord{
		ID:              model.RawValue(makeChaseRef(rec[chaseColDate], rec[chaseColDesc])),
		Date:            rec[chaseColDate],
		Description:     rec[chaseColDesc],
		Amount:          model.RawValue(rec[chaseColAmount]),
		Type:            direction,
		SourceAccountID: model.RawValue(p.AccountID),
		Category:        category,
	}
}

// makeChaseRef creates a reference like chase_01032025_GITHUBPROS.
func makeChaseRef(date, desc string) string {
	keep := func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}
	prefix := strings.Map(keep, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", strings.Map(keep, date), prefix)
}
