package operations

import (
	"testing"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestForgeVendorIDs_SameDay(t *testing.T) {
	txs := []*domain.Transaction{
		{Date: day(2024, time.March, 1), Amount: decimal.NewFromInt(-5)},
		{Date: day(2024, time.March, 1), Amount: decimal.NewFromInt(-7)},
	}
	ForgeVendorIDs("123", txs, nil)

	assert.Equal(t, "123_2024-03-01_0", txs[0].VendorID)
	assert.Equal(t, "123_2024-03-01_1", txs[1].VendorID)
}

func TestForgeVendorIDs_InterleavedDays(t *testing.T) {
	txs := []*domain.Transaction{
		{Date: day(2024, time.March, 2)},
		{Date: day(2024, time.March, 1)},
		{Date: day(2024, time.March, 2)},
		{Date: day(2024, time.March, 1)},
	}
	ForgeVendorIDs("9", txs, nil)

	want := []string{"9_2024-03-02_0", "9_2024-03-01_0", "9_2024-03-02_1", "9_2024-03-01_1"}
	for i, tx := range txs {
		assert.Equal(t, want[i], tx.VendorID)
	}
}

func TestForgeVendorIDs_UniqueAndIdempotent(t *testing.T) {
	build := func() []*domain.Transaction {
		var txs []*domain.Transaction
		for i := 0; i < 50; i++ {
			txs = append(txs, &domain.Transaction{
				Date:   day(2024, time.January, 1+i%7),
				Amount: decimal.NewFromInt(int64(i)),
			})
		}
		return txs
	}

	first, second := build(), build()
	ForgeVendorIDs("acc", first, nil)
	ForgeVendorIDs("acc", second, nil)

	seen := map[string]bool{}
	for i := range first {
		assert.False(t, seen[first[i].VendorID], "duplicate id %s", first[i].VendorID)
		seen[first[i].VendorID] = true
		assert.Equal(t, first[i].VendorID, second[i].VendorID)
	}
}

func TestForgeVendorIDs_UsesCalendarDayOfLocation(t *testing.T) {
	// midnight in Paris is still the previous day in UTC
	txs := []*domain.Transaction{{Date: day(2024, time.March, 1).UTC()}}

	ForgeVendorIDs("1", txs, nil)
	assert.Equal(t, "1_2024-03-01_0", txs[0].VendorID)

	ForgeVendorIDs("1", txs, time.UTC)
	if ParisLocation() != time.UTC {
		assert.Equal(t, "1_2024-02-29_0", txs[0].VendorID)
	}
}
