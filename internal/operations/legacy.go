package operations

import (
	"context"
	"strings"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	// legacyHeaderRows are the title and legend rows of every export.
	legacyHeaderRows = 9

	// labelSeparator joins the sub-labels of one operation.
	labelSeparator = "\x1b :"

	legacyCurrency = "EUR"
)

// ParseLegacyOperations turns the rows of a legacy export into transactions, in export order.
// Columns are date, label, debit and credit. Rows whose date cannot be read are skipped.
func ParseLegacyOperations(ctx context.Context, account *domain.Account, rows [][]string, dates *DateParser, now time.Time) []*domain.Transaction {
	_, log := logger.WithAccount(ctx, account.Number)

	if len(rows) <= legacyHeaderRows {
		return nil
	}

	var txs []*domain.Transaction
	for i, row := range rows[legacyHeaderRows:] {
		line := i + legacyHeaderRows + 1
		if len(strings.Join(row, ",")) <= 3 {
			continue
		}
		cells := make([]string, 4)
		copy(cells, row)

		labels := strings.Split(cells[1], labelSeparator)
		for j := range labels {
			labels[j] = strings.TrimSpace(labels[j])
		}

		amount := decimal.Zero
		switch {
		case strings.TrimSpace(cells[2]) != "":
			debit, err := domain.ParseAmount(cells[2])
			if err != nil {
				log.Warn().Err(err).Int("line", line).Msg("unreadable debit, amount set to zero")
			} else {
				amount = debit.Neg()
			}
		case strings.TrimSpace(cells[3]) != "":
			credit, err := domain.ParseAmount(cells[3])
			if err != nil {
				log.Warn().Err(err).Int("line", line).Msg("unreadable credit, amount set to zero")
			} else {
				amount = credit
			}
		default:
			log.Warn().Int("line", line).Strs("cells", row).Msg("no amount found for operation")
		}

		date, err := dates.Parse(cells[0], now)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping operation with unreadable date")
			continue
		}

		txs = append(txs, &domain.Transaction{
			VendorAccountID: account.Number,
			Date:            date,
			DateOperation:   date,
			DateImport:      now,
			Label:           labels[0],
			OriginalLabel:   strings.Join(labels, "\n"),
			Type:            domain.TransactionTypeNone,
			Amount:          amount,
			Currency:        legacyCurrency,
		})
	}
	return txs
}
