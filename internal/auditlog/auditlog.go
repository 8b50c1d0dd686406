// Package auditlog keeps an append-only CSV record of extraction attempts
// and their verification outcome, including the feedback text sent back to
// the extractor.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcarecon/mcarecon/internal/model"
)

// Entry is one row in the audit log.
type Entry struct {
	ID            string
	Timestamp     time.Time
	RunID         string
	DealID        string
	Attempt       int
	Status        model.RetryStatus
	Valid         bool
	Discrepancies int
	Confidence    float64
	Feedback      string
}

// Header is the CSV header for audit-log.csv.
const Header = "id,timestamp,run_id,deal_id,attempt,status,valid,discrepancies,confidence,feedback"

const (
	numFields        = 10
	logDir           = "logs"
	logFile          = "logs/audit-log.csv"
	colID            = 0
	colTimestamp     = 1
	colRunID         = 2
	colDealID        = 3
	colAttempt       = 4
	colStatus        = 5
	colValid         = 6
	colDiscrepancies = 7
	colConfidence    = 8
	colFeedback      = 9
)

// MarshalEntry converts an Entry to a CSV row. An empty ID is filled with a
// new UUID.
func MarshalEntry(e Entry) []string {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row := make([]string, numFields)
	row[colID] = e.ID
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colDealID] = e.DealID
	row[colAttempt] = strconv.Itoa(e.Attempt)
	row[colStatus] = string(e.Status)
	row[colValid] = strconv.FormatBool(e.Valid)
	row[colDiscrepancies] = strconv.Itoa(e.Discrepancies)
	row[colConfidence] = strconv.FormatFloat(e.Confidence, 'f', 2, 64)
	row[colFeedback] = e.Feedback
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	attempt, err := strconv.Atoi(record[colAttempt])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing attempt %q: %w", record[colAttempt], err)
	}
	valid, err := strconv.ParseBool(record[colValid])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing valid %q: %w", record[colValid], err)
	}
	discrepancies, err := strconv.Atoi(record[colDiscrepancies])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing discrepancies %q: %w", record[colDiscrepancies], err)
	}
	confidence, err := strconv.ParseFloat(record[colConfidence], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing confidence %q: %w", record[colConfidence], err)
	}

	return Entry{
		ID:            record[colID],
		Timestamp:     ts,
		RunID:         record[colRunID],
		DealID:        record[colDealID],
		Attempt:       attempt,
		Status:        model.RetryStatus(record[colStatus]),
		Valid:         valid,
		Discrepancies: discrepancies,
		Confidence:    confidence,
		Feedback:      record[colFeedback],
	}, nil
}

// Append writes entries to <dir>/logs/audit-log.csv, creating the file and header if needed.
func Append(dir string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Join(dir, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(dir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <dir>/logs/audit-log.csv.
// Returns nil if the file does not exist.
func Read(dir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dir, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ForDeal filters entries to one deal, preserving order.
func ForDeal(entries []Entry, dealID string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.DealID == dealID {
			out = append(out, e)
		}
	}
	return out
}
