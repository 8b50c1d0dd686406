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
)

// PositionsHeader is the CSV header for positions.csv.
const PositionsHeader = "lender_name,amount,frequency,monthly_payment,occurrence_count,is_stacked,stack_count,first_seen,last_seen,transaction_ids"

const (
	numPosFields   = 10
	colLenderName  = 0
	colPosAmount   = 1
	colFrequency   = 2
	colMonthly     = 3
	colOccurrences = 4
	colStacked     = 5
	colStackCount  = 6
	colFirstSeen   = 7
	colLastSeen    = 8
	colTxnIDs      = 9
	idSeparator    = ";"
)

// WritePositions writes positions (including header).
func WritePositions(w io.Writer, positions []model.Position) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(PositionsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, p := range positions {
		if err := cw.Write(MarshalPosition(p)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPositions reads all positions from a positions.csv reader.
func ReadPositions(r io.Reader) ([]model.Position, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numPosFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading positions CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	positions := make([]model.Position, 0, len(records)-1)
	for i, rec := range records[1:] {
		p, err := UnmarshalPosition(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// MarshalPosition converts a Position to a CSV row.
func MarshalPosition(p model.Position) []string {
	row := make([]string, numPosFields)
	row[colLenderName] = p.LenderName
	row[colPosAmount] = p.Amount.StringFixed(2)
	row[colFrequency] = string(p.Frequency)
	row[colMonthly] = p.MonthlyPayment.StringFixed(2)
	row[colOccurrences] = strconv.Itoa(p.OccurrenceCount)
	row[colStacked] = strconv.FormatBool(p.IsStacked)
	row[colStackCount] = strconv.Itoa(p.StackCount)
	row[colFirstSeen] = p.FirstSeen.Format(dateFormat)
	row[colLastSeen] = p.LastSeen.Format(dateFormat)
	row[colTxnIDs] = strings.Join(p.TransactionIDs, idSeparator)
	return row
}

// UnmarshalPosition converts a CSV row to a Position.
func UnmarshalPosition(record []string) (model.Position, error) {
	if len(record) != numPosFields {
		return model.Position{}, fmt.Errorf("expected %d fields, got %d", numPosFields, len(record))
	}

	amount, err := decimal.NewFromString(record[colPosAmount])
	if err != nil {
		return model.Position{}, fmt.Errorf("parsing amount %q: %w", record[colPosAmount], err)
	}
	monthly, err := decimal.NewFromString(record[colMonthly])
	if err != nil {
		return model.Position{}, fmt.Errorf("parsing monthly_payment %q: %w", record[colMonthly], err)
	}
	occurrences, err := strconv.Atoi(record[colOccurrences])
	if err != nil {
		return model.Position{}, fmt.Errorf("parsing occurrence_count %q: %w", record[colOccurrences], err)
	}
	stacked, err := strconv.ParseBool(record[colStacked])
	if err != nil {
		return model.Position{}, fmt.Errorf("parsing is_stacked %q: %w", record[colStacked], err)
	}
	stackCount, err := strconv.Atoi(record[colStackCount])
	if err != nil {
		return model.Position{}, fmt.Errorf("parsing stack_count %q: %w", record[colStackCount], err)
	}
	first, err := time.Parse(dateFormat, record[colFirstSeen])
	if err != nil {
		return model.Position{}, fmt.Errorf("parsing first_seen %q: %w", record[colFirstSeen], err)
	}
	last, err := time.Parse(dateFormat, record[colLastSeen])
	if err != nil {
		return model.Position{}, fmt.Errorf("parsing last_seen %q: %w", record[colLastSeen], err)
	}

	var ids []string
	if record[colTxnIDs] != "" {
		ids = strings.Split(record[colTxnIDs], idSeparator)
	}

	return model.Position{
		LenderName:      record[colLenderName],
		Amount:          amount,
		Frequency:       model.Frequency(record[colFrequency]),
		MonthlyPayment:  monthly,
		OccurrenceCount: occurrences,
		IsStacked:       stacked,
		StackCount:      stackCount,
		FirstSeen:       first,
		LastSeen:        last,
		TransactionIDs:  ids,
	}, nil
}
