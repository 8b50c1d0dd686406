package accounts

import (
	"strings"

	"github.com/mcarecon/mcarecon/internal/model"
)

// Service provides in-memory lookup over the merchant's own bank accounts.
type Service struct {
	accounts   []model.Account
	byID       map[string]model.Account
	byLastFour map[string][]model.Account
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	byID := make(map[string]model.Account, len(accounts))
	byLastFour := make(map[string][]model.Account)
	for _, a := range accounts {
		byID[a.ID] = a
		if lf := normalizeLastFour(a.LastFour); lf != "" {
			byLastFour[lf] = append(byLastFour[lf], a)
		}
	}
	return &Service{accounts: accounts, byID: byID, byLastFour: byLastFour}
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// ByLastFour returns the accounts whose number ends in lastFour.
func (s *Service) ByLastFour(lastFour string) []model.Account {
	return s.byLastFour[normalizeLastFour(lastFour)]
}

// KnownLastFour reports whether lastFour belongs to any of the merchant's accounts.
func (s *Service) KnownLastFour(lastFour string) bool {
	return len(s.ByLastFour(lastFour)) > 0
}

func normalizeLastFour(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	return s
}
