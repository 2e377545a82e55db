package firestore

import (
	"testing"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountDocument(t *testing.T) {
	balance := decimal.RequireFromString("-50.10")
	acc := &domain.Account{ID: "a1", Number: "123", Type: domain.AccountTypeSavings, Balance: &balance}

	doc := toAccount(acc, time.Now())
	assert.Equal(t, "-50.1", doc.Balance)

	back, err := doc.domain()
	require.NoError(t, err)
	require.NotNil(t, back.Balance)
	assert.True(t, balance.Equal(*back.Balance))
	assert.Equal(t, domain.AccountTypeSavings, back.Type)

	doc.Balance = ""
	back, err = doc.domain()
	require.NoError(t, err)
	assert.Nil(t, back.Balance)
}

func TestTransactionDocument(t *testing.T) {
	tx := &domain.Transaction{
		VendorID:      "123_2024-03-01_0",
		AccountID:     "a1",
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DateOperation: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("-12.34"),
	}

	doc := toTransaction(tx)
	assert.Equal(t, "2024-03-01", doc.Date)
	assert.Equal(t, "2024-02-28", doc.DateOperation)
	assert.Equal(t, "-12.34", doc.Amount)
}

func TestBalanceHistoryDocument(t *testing.T) {
	h := domain.NewBalanceHistory("a1", 2024)
	h.Balances["2024-03-01"] = decimal.RequireFromString("99.99")

	doc := toBalanceHistory(h, time.Now())
	back, err := doc.domain()
	require.NoError(t, err)
	assert.Equal(t, h.ID, back.ID)
	assert.True(t, h.Balances["2024-03-01"].Equal(back.Balances["2024-03-01"]))

	doc.Balances["2024-03-02"] = "nope"
	_, err = doc.domain()
	assert.Error(t, err)
}
