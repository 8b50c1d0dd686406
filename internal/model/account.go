package model

// Account is one of the merchant's own bank accounts.
type Account struct {
	ID       string
	Name     string
	Type     string // checking, savings, ...
	LastFour string
}
