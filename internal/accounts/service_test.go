package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarecon/mcarecon/internal/model"
)

func testAccounts() []model.Account {
	return []model.Account{
		{ID: "chk-op", Name: "Operating", Type: "checking", LastFour: "1234"},
		{ID: "sav-res", Name: "Reserve", Type: "savings", LastFour: "99995678"},
		{ID: "chk-pay", Name: "Payroll", Type: "checking"},
	}
}

func TestService_Get(t *testing.T) {
	svc := NewService(testAccounts())

	a, ok := svc.Get("chk-op")
	require.True(t, ok)
	assert.Equal(t, "Operating", a.Name)

	_, ok = svc.Get("missing")
	assert.False(t, ok)
}

func TestService_Exists(t *testing.T) {
	svc := NewService(testAccounts())
	assert.True(t, svc.Exists("sav-res"))
	assert.False(t, svc.Exists(""))
}

func TestService_All(t *testing.T) {
	svc := NewService(testAccounts())
	assert.Len(t, svc.All(), 3)
}

func TestService_ByLastFour(t *testing.T) {
	svc := NewService(testAccounts())

	got := svc.ByLastFour("1234")
	require.Len(t, got, 1)
	assert.Equal(t, "chk-op", got[0].ID)

	// Full account numbers are reduced to their last four digits.
	got = svc.ByLastFour("5678")
	require.Len(t, got, 1)
	assert.Equal(t, "sav-res", got[0].ID)

	assert.True(t, svc.KnownLastFour("0001231234"))
	assert.False(t, svc.KnownLastFour("0000"))
	assert.False(t, svc.KnownLastFour(""))
}
