package operations

import (
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
)

var (
	parisOnce sync.Once
	paris     *time.Location
)

// ParisLocation is the portal's time zone; it falls back to UTC when tzdata is missing.
func ParisLocation() *time.Location {
	parisOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Paris")
		if err != nil {
			loc = time.UTC
		}
		paris = loc
	})
	return paris
}

// ForgeVendorIDs assigns "<number>_<YYYY-MM-DD>_<n>" ids, n counting the transactions of
// the same value date in the order they were produced. loc sets the calendar day and
// defaults to Europe/Paris.
func ForgeVendorIDs(accountNumber string, txs []*domain.Transaction, loc *time.Location) {
	if loc == nil {
		loc = ParisLocation()
	}
	seq := make(map[string]int)
	for _, tx := range txs {
		day := tx.Date.In(loc).Format(domain.DateLayout)
		tx.VendorID = fmt.Sprintf("%s_%s_%d", accountNumber, day, seq[day])
		seq[day]++
	}
}
