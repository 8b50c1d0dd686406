package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/transfer"
)

const (
	transactionsFile = "transactions.csv"
	positionsFile    = "positions.csv"
)

// Service stores per-deal results under a root directory:
// <root>/<deal>/transactions.csv and <root>/<deal>/positions.csv.
type Service struct {
	root string
}

// NewService creates an export Service.
func NewService(root string) *Service {
	return &Service{root: root}
}

// Save validates the transfer annotations and writes both files for dealID,
// replacing any previous output.
func (s *Service) Save(dealID string, txns []model.Transaction, positions []model.Position) error {
	if strings.TrimSpace(dealID) == "" {
		return fmt.Errorf("deal id is required")
	}

	if verrs := transfer.Validate(txns); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}

	dir := s.DealDir(dealID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating deal dir: %w", err)
	}

	if err := writeFile(filepath.Join(dir, transactionsFile), func(f *os.File) error {
		return WriteTransactions(f, txns)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, positionsFile), func(f *os.File) error {
		return WritePositions(f, positions)
	})
}

// Transactions reads the saved transactions for dealID. A deal with no
// saved output yields nil.
func (s *Service) Transactions(dealID string) ([]model.Transaction, error) {
	path := filepath.Join(s.DealDir(dealID), transactionsFile)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return txns, nil
}

// Positions reads the saved positions for dealID.
func (s *Service) Positions(dealID string) ([]model.Position, error) {
	path := filepath.Join(s.DealDir(dealID), positionsFile)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	positions, err := ReadPositions(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return positions, nil
}

// DealDir returns the output directory for dealID.
func (s *Service) DealDir(dealID string) string {
	return filepath.Join(s.root, dealID)
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
