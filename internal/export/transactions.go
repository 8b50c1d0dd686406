// Package export writes annotated transactions and detected positions as
// CSV files for persistence and review tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/normalize"
)

// TransactionsHeader is the CSV header for transactions.csv.
const TransactionsHeader = "id,date,description,amount,direction,source_account_id,category,is_internal_transfer,matched_transfer_id,transfer_reason,is_lender_payment,amount_malformed"

const (
	numTxnFields = 12
	dateFormat   = "2006-01-02"
	colID        = 0
	colDate      = 1
	colDesc      = 2
	colAmount    = 3
	colDirection = 4
	colAccount   = 5
	colCategory  = 6
	colInternal  = 7
	colMatchedID = 8
	colReason    = 9
	colLender    = 10
	colMalformed = 11
)

// ReadTransactions reads all transactions from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numTxnFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	txns := make([]model.Transaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes transactions (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TransactionsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row. A sentinel date
// is written as an empty cell.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numTxnFields)
	row[colID] = t.ID
	if !t.DateMissing {
		row[colDate] = t.Date.Format(dateFormat)
	}
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.StringFixed(2)
	row[colDirection] = string(t.Direction)
	row[colAccount] = t.SourceAccountID
	row[colCategory] = t.Category
	row[colInternal] = strconv.FormatBool(t.IsInternalTransfer)
	row[colMatchedID] = t.MatchedTransferID
	row[colReason] = t.TransferReason
	row[colLender] = strconv.FormatBool(t.IsLenderPayment)
	row[colMalformed] = strconv.FormatBool(t.AmountMalformed)
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numTxnFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numTxnFields, len(record))
	}

	t := model.Transaction{
		ID:                record[colID],
		Description:       record[colDesc],
		Direction:         model.Direction(record[colDirection]),
		SourceAccountID:   record[colAccount],
		Category:          record[colCategory],
		MatchedTransferID: record[colMatchedID],
		TransferReason:    record[colReason],
	}

	if record[colDate] == "" {
		t.Date = normalize.Epoch
		t.DateMissing = true
	} else {
		date, err := time.Parse(dateFormat, record[colDate])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
		}
		t.Date = date
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	t.Amount = amount

	if t.Direction != model.Debit && t.Direction != model.Credit {
		return model.Transaction{}, fmt.Errorf("invalid direction %q", record[colDirection])
	}

	flags := []struct {
		col int
		dst *bool
	}{
		{colInternal, &t.IsInternalTransfer},
		{colLender, &t.IsLenderPayment},
		{colMalformed, &t.AmountMalformed},
	}
	for _, f := range flags {
		v, err := strconv.ParseBool(record[f.col])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing flag %q: %w", record[f.col], err)
		}
		*f.dst = v
	}
	return t, nil
}
