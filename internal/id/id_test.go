package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTxnID(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{1, "txn-00001"},
		{99, "txn-00099"},
		{123456, "txn-123456"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTxnID(tt.seq))
	}
}

func TestParseTxnID(t *testing.T) {
	seq, err := ParseTxnID("txn-00042")
	require.NoError(t, err)
	assert.Equal(t, 42, seq)
}

func TestParseTxnID_Errors(t *testing.T) {
	for _, input := range []string{"", "42", "txn-", "txn-abc", "TXN-00001"} {
		_, err := ParseTxnID(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"txn-00002", "txn-00010", true},
		{"txn-00010", "txn-00002", false},
		{"2", "10", true},
		{"txn-00003", "abc", true},
		{"abc", "txn-00003", false},
		{"abc", "abd", true},
		{"same", "same", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Less(tt.a, tt.b), "Less(%q, %q)", tt.a, tt.b)
	}
}
