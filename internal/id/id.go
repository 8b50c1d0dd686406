package id

import (
	"fmt"
	"strconv"
	"strings"
)

const txnPrefix = "txn-"

// FormatTxnID returns a synthesized transaction ID like "txn-00001".
func FormatTxnID(seq int) string {
	return fmt.Sprintf("%s%05d", txnPrefix, seq)
}

// ParseTxnID parses "txn-00001" into its sequence number.
func ParseTxnID(id string) (int, error) {
	if !strings.HasPrefix(id, txnPrefix) {
		return 0, fmt.Errorf("invalid transaction ID format: %q", id)
	}
	seq, err := strconv.Atoi(id[len(txnPrefix):])
	if err != nil {
		return 0, fmt.Errorf("invalid sequence in transaction ID %q: %w", id, err)
	}
	return seq, nil
}

// Less orders transaction IDs deterministically. Synthesized and purely
// numeric IDs compare by number; anything else falls back to string order.
func Less(a, b string) bool {
	na, okA := numeric(a)
	nb, okB := numeric(b)
	switch {
	case okA && okB:
		if na != nb {
			return na < nb
		}
		return a < b
	case okA:
		return true
	case okB:
		return false
	}
	return a < b
}

func numeric(id string) (int, bool) {
	if seq, err := ParseTxnID(id); err == nil {
		return seq, true
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, false
	}
	return n, true
}
