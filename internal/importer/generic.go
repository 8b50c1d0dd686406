package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mcarecon/mcarecon/internal/model"
)

// GenericParser reads any CSV with a header row, mapping columns by name.
// Recognized headers (case-insensitive): id, date, description, amount,
// type, source_account_id, category, plus common aliases and separate
// debit/credit amount columns.
type GenericParser struct {
	AccountID string // used when the file has no account column
}

var headerAliases = map[string]string{
	"id":                "id",
	"transaction id":    "id",
	"reference":         "id",
	"date":              "date",
	"posting date":      "date",
	"post date":         "date",
	"transaction date":  "date",
	"description":       "description",
	"memo":              "description",
	"payee":             "description",
	"amount":            "amount",
	"debit":             "debit",
	"withdrawal":        "debit",
	"withdrawals":       "debit",
	"credit":            "credit",
	"deposit":           "credit",
	"deposits":          "credit",
	"type":              "type",
	"direction":         "type",
	"source account id": "account",
	"account":           "account",
	"account id":        "account",
	"category":          "category",
}

// Format returns the parser name.
func (p *GenericParser) Format() string { return "generic" }

// Parse reads the CSV and returns raw records.
func (p *GenericParser) Parse(r io.Reader) ([]model.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		key = strings.ReplaceAll(key, "_", " ")
		if canon, ok := headerAliases[key]; ok {
			if _, seen := cols[canon]; !seen {
				cols[canon] = i
			}
		}
	}
	if _, ok := cols["date"]; !ok {
		return nil, errors.New("CSV has no date column")
	}
	_, hasAmount := cols["amount"]
	_, hasDebit := cols["debit"]
	_, hasCredit := cols["credit"]
	if !hasAmount && !hasDebit && !hasCredit {
		return nil, errors.New("CSV has no amount, debit or credit column")
	}

	var txns []model.RawRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		txns = append(txns, p.parseRow(rec, cols))
	}
	return txns, nil
}

func (p *GenericParser) parseRow(rec []string, cols map[string]int) model.RawRecord {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	raw := model.RawRecord{
		ID:              model.RawValue(get("id")),
		Date:            get("date"),
		Description:     get("description"),
		Amount:          model.RawValue(get("amount")),
		Type:            get("type"),
		SourceAccountID: model.RawValue(get("account")),
		Category:        get("category"),
	}
	if raw.SourceAccountID == "" {
		raw.SourceAccountID = model.RawValue(p.AccountID)
	}
	if raw.Amount == "" {
		if d := get("debit"); d != "" {
			raw.Amount, raw.Type = model.RawValue(d), "debit"
		} else if c := get("credit"); c != "" {
			raw.Amount, raw.Type = model.RawValue(c), "credit"
		}
	}
	return raw
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
