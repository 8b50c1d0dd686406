package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Trucking")
	cfg.BankAccounts = []BankAccount{
		{ID: "chk-1", Name: "Operating", Type: "checking", LastFour: "1234"},
	}
	cfg.Positions.MinOccurrences = 3

	path := filepath.Join(t.TempDir(), "mcarecon.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Business.Name, got.Business.Name)
	assert.Equal(t, cfg.Transfers.WindowDays, got.Transfers.WindowDays)
	assert.InDelta(t, cfg.Transfers.AmountTolerance, got.Transfers.AmountTolerance, 0.0001)
	assert.InDelta(t, cfg.Verification.RelativeTolerance, got.Verification.RelativeTolerance, 0.0001)
	assert.Equal(t, 3, got.Positions.MinOccurrences)
	assert.Equal(t, cfg.Positions.LenderKeywords, got.Positions.LenderKeywords)
	assert.Equal(t, cfg.Retry.PollInterval, got.Retry.PollInterval)
	assert.Equal(t, cfg.Retry.MaxWait, got.Retry.MaxWait)
	require.Len(t, got.BankAccounts, 1)
	assert.Equal(t, "1234", got.BankAccounts[0].LastFour)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, 500, cfg.Normalize.MaxDescriptionLength)
	assert.Equal(t, 2, cfg.Transfers.WindowDays)
	assert.InDelta(t, 0.01, cfg.Transfers.AmountTolerance, 0.0001)
	assert.InDelta(t, 0.03, cfg.Positions.AmountTolerance, 0.0001)
	assert.Equal(t, 2, cfg.Positions.MinOccurrences)
	assert.InDelta(t, 0.05, cfg.Verification.RelativeTolerance, 0.0001)
	assert.InDelta(t, 1.00, cfg.Verification.AbsoluteFloor, 0.0001)
	assert.InDelta(t, 100, cfg.Verification.HighSeverityGap, 0.0001)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Retry.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.Retry.MaxWait)
	assert.Contains(t, cfg.Positions.DenyKeywords, "capital one")
	assert.Subset(t, cfg.Positions.NoiseWords, []string{"ach", "pmt", "web", "orig", "name", "co", "des", "entry"})
	assert.Empty(t, cfg.BankAccounts)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcarecon.yaml")
	content := "business:\n  name: Partial\ntransfers:\n  window_days: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Partial", cfg.Business.Name)
	assert.Equal(t, 3, cfg.Transfers.WindowDays)
	assert.InDelta(t, 0.01, cfg.Transfers.AmountTolerance, 0.0001)
	assert.Equal(t, 2, cfg.Positions.MinOccurrences)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcarecon.yaml")
	content := "positions:\n  min_occurrences: 0\nretry:\n  max_retries: -1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_occurrences")
	assert.Contains(t, err.Error(), "max_retries")
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz")
	path := filepath.Join(t.TempDir(), "mcarecon.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "window_days: 2")
	assert.Contains(t, contents, "min_occurrences: 2")
}

func TestAccounts(t *testing.T) {
	cfg := Default("x")
	cfg.BankAccounts = []BankAccount{{ID: "a", LastFour: "1111"}, {ID: "b", LastFour: "2222"}}
	accts := cfg.Accounts()
	require.Len(t, accts, 2)
	assert.Equal(t, "b", accts[1].ID)
	assert.Equal(t, "2222", accts[1].LastFour)
}

func TestLoadPatternVendors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "valid vendors",
			content: "patterns:\n  vendors:\n    - name: Sysco\n      category: food\n      match: contains\n    - name: Fora Financial\n      lender: true\n",
		},
		{
			name:    "unknown match type",
			content: "patterns:\n  vendors:\n    - name: Sysco\n      match: regex\n",
			wantErr: `unknown match type "regex"`,
		},
		{
			name:    "threshold out of range",
			content: "patterns:\n  fuzzy_threshold: 1.5\n",
			wantErr: "fuzzy_threshold",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mcarecon.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, cfg.Patterns.Vendors, 2)
			assert.Equal(t, MatchContains, cfg.Patterns.Vendors[0].Match)
			assert.True(t, cfg.Patterns.Vendors[1].Lender)
			assert.Equal(t, 4, cfg.Patterns.MinRecurring)
		})
	}
}
