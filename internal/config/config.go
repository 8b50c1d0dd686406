package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcarecon/mcarecon/internal/model"
)

// Config represents the top-level mcarecon.yaml configuration.
type Config struct {
	Business     BusinessConfig     `yaml:"business"`
	BankAccounts []BankAccount      `yaml:"bank_accounts,omitempty"`
	Normalize    NormalizeConfig    `yaml:"normalize"`
	Transfers    TransferConfig     `yaml:"transfers"`
	Positions    PositionConfig     `yaml:"positions"`
	Verification VerificationConfig `yaml:"verification"`
	Retry        RetryConfig        `yaml:"retry"`
	Patterns     PatternConfig      `yaml:"patterns"`
}

// BusinessConfig identifies the merchant under review.
type BusinessConfig struct {
	Name string `yaml:"name"`
}

// BankAccount is one of the merchant's own accounts.
type BankAccount struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	LastFour string `yaml:"last_four"`
}

// NormalizeConfig controls raw record coercion.
type NormalizeConfig struct {
	MaxDescriptionLength int `yaml:"max_description_length"`
}

// TransferConfig controls internal transfer detection.
// Tolerances are fractions: 0.01 = 1%.
type TransferConfig struct {
	WindowDays          int      `yaml:"window_days"`
	AmountTolerance     float64  `yaml:"amount_tolerance"`
	ExplicitPhrases     []string `yaml:"explicit_phrases"`
	BoilerplateWords    []string `yaml:"boilerplate_words"`
	SameEntityThreshold float64  `yaml:"same_entity_threshold"`
}

// PositionConfig controls lender detection and clustering.
type PositionConfig struct {
	AmountTolerance float64  `yaml:"amount_tolerance"`
	MinOccurrences  int      `yaml:"min_occurrences"`
	LenderKeywords  []string `yaml:"lender_keywords"`
	DenyKeywords    []string `yaml:"deny_keywords"`
	NamePrefixes    []string `yaml:"name_prefixes"`
	NoiseWords      []string `yaml:"noise_words"`
	PayoffKeywords  []string `yaml:"payoff_keywords"`
	NameTokens      int      `yaml:"name_tokens"`
}

// PatternConfig controls recurring-debit detection and vendor
// categorization. RefinanceChange is a fraction: 0.15 = 15%.
type PatternConfig struct {
	MinRecurring        int      `yaml:"min_recurring"`
	MinStopStart        int      `yaml:"min_stop_start"`
	PauseGapDays        int      `yaml:"pause_gap_days"`
	RefinanceChange     float64  `yaml:"refinance_change"`
	MinUnknownRecurring int      `yaml:"min_unknown_recurring"`
	FuzzyThreshold      float64  `yaml:"fuzzy_threshold"`
	Vendors             []Vendor `yaml:"vendors,omitempty"`
}

// Vendor match types.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchFuzzy    = "fuzzy"
)

// Vendor is a known payee. An empty Match means fuzzy.
type Vendor struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category,omitempty"`
	Match    string `yaml:"match,omitempty"`
	Lender   bool   `yaml:"lender,omitempty"`
}

// VerificationConfig controls claimed-vs-computed tolerance and scoring.
type VerificationConfig struct {
	RelativeTolerance float64 `yaml:"relative_tolerance"`
	AbsoluteFloor     float64 `yaml:"absolute_floor"`
	HighSeverityGap   float64 `yaml:"high_severity_gap"`
	HighPenalty       float64 `yaml:"high_penalty"`
	MediumPenalty     float64 `yaml:"medium_penalty"`
}

// RetryConfig bounds re-extraction.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// Load reads a mcarecon.yaml file from disk. Sections missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Normalize.MaxDescriptionLength <= 0 {
		errs = append(errs, errors.New("normalize.max_description_length must be positive"))
	}
	if c.Transfers.WindowDays < 0 {
		errs = append(errs, errors.New("transfers.window_days must not be negative"))
	}
	if c.Transfers.AmountTolerance < 0 {
		errs = append(errs, errors.New("transfers.amount_tolerance must not be negative"))
	}
	if c.Positions.AmountTolerance < 0 {
		errs = append(errs, errors.New("positions.amount_tolerance must not be negative"))
	}
	if c.Positions.MinOccurrences < 1 {
		errs = append(errs, errors.New("positions.min_occurrences must be at least 1"))
	}
	if c.Positions.NameTokens < 1 {
		errs = append(errs, errors.New("positions.name_tokens must be at least 1"))
	}
	if c.Verification.RelativeTolerance < 0 || c.Verification.AbsoluteFloor < 0 {
		errs = append(errs, errors.New("verification tolerances must not be negative"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}
	if c.Patterns.MinRecurring < 2 || c.Patterns.MinStopStart < 2 || c.Patterns.MinUnknownRecurring < 2 {
		errs = append(errs, errors.New("patterns minimum occurrences must be at least 2"))
	}
	if c.Patterns.FuzzyThreshold <= 0 || c.Patterns.FuzzyThreshold > 1 {
		errs = append(errs, errors.New("patterns.fuzzy_threshold must be in (0, 1]"))
	}
	for i, v := range c.Patterns.Vendors {
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("patterns.vendors[%d]: name is required", i))
		}
		switch v.Match {
		case "", MatchExact, MatchContains, MatchFuzzy:
		default:
			errs = append(errs, fmt.Errorf("patterns.vendors[%d]: unknown match type %q", i, v.Match))
		}
	}
	return errors.Join(errs...)
}

// Accounts converts the configured bank accounts to model accounts.
func (c *Config) Accounts() []model.Account {
	accts := make([]model.Account, len(c.BankAccounts))
	for i, b := range c.BankAccounts {
		accts[i] = model.Account{ID: b.ID, Name: b.Name, Type: b.Type, LastFour: b.LastFour}
	}
	return accts
}

// Default returns a Config with the engine's default tolerances and lexicons.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{Name: businessName},
		Normalize: NormalizeConfig{
			MaxDescriptionLength: 500,
		},
		Transfers: TransferConfig{
			WindowDays:      2,
			AmountTolerance: 0.01,
			ExplicitPhrases: []string{
				"intra-bank transfer",
				"intrabank transfer",
				"internal transfer",
			},
			BoilerplateWords: []string{
				"inc", "llc", "ltd", "corp", "co", "company", "group", "the", "and",
				"of", "online", "transfer", "from", "to", "ach", "wire", "deposit",
				"payment", "pmt", "debit", "credit", "chk", "sav", "checking",
				"savings", "ref", "conf", "trn", "id", "des", "indn", "ppd", "ccd",
			},
			SameEntityThreshold: 0.9,
		},
		Positions: PositionConfig{
			AmountTolerance: 0.03,
			MinOccurrences:  2,
			LenderKeywords: []string{
				"capital", "funding", "advance", "financing", "financial",
				"lending", "merchant", "mca", "loan", "factor",
			},
			DenyKeywords: []string{
				"capital one", "american express", "amex", "visa", "mastercard",
				"discover", "insurance", "geico", "progressive", "state farm", "allstate",
			},
			NamePrefixes: []string{
				"ach debit", "ach credit", "ach", "wire", "transfer", "payment to",
				"payment from", "online pmt", "debit", "preauthorized debit",
			},
			NoiseWords: []string{
				"ach", "pmt", "pymt", "payment", "payments", "web", "tel", "ppd", "ccd",
				"ctx", "sec", "orig", "name", "co", "des", "descr", "entry", "eff",
				"date", "indn", "ind", "id", "ref", "conf", "trn", "debit", "credit",
				"online", "recurring", "autopay", "epay", "llc", "inc", "corp", "ltd",
				"company", "the",
			},
			PayoffKeywords: []string{"payoff", "paid in full", "settlement"},
			NameTokens:     3,
		},
		Verification: VerificationConfig{
			RelativeTolerance: 0.05,
			AbsoluteFloor:     1.00,
			HighSeverityGap:   100,
			HighPenalty:       0.25,
			MediumPenalty:     0.10,
		},
		Retry: RetryConfig{
			MaxRetries:   model.DefaultMaxRetries,
			PollInterval: 5 * time.Second,
			MaxWait:      30 * time.Minute,
		},
		Patterns: PatternConfig{
			MinRecurring:        4,
			MinStopStart:        3,
			PauseGapDays:        5,
			RefinanceChange:     0.15,
			MinUnknownRecurring: 3,
			FuzzyThreshold:      0.8,
		},
	}
}
