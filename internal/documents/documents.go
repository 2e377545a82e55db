// Package documents lists the account statements exposed by the legacy portal and hands them to
// a FileSaver within the run's time budget.
package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
	"github.com/hashicorp/go-multierror"
)

const statementsSection = "RELEVES DE COMPTES"

// Entry is one statement file to save.
type Entry struct {
	FileURL  string
	FileName string
	SubPath  string
}

// FileSaver stores statement files. Saving must stop once deadline has passed; files left
// over are picked up by the next run.
type FileSaver interface {
	SaveFiles(ctx context.Context, entries []Entry, deadline time.Time) error
}

// StatementAccount is an account listed on the statements page.
type StatementAccount struct {
	Label string
	Link  string
}

// CleanDocumentLabel joins the words of label with underscores and drops its first dot.
func CleanDocumentLabel(label string) string {
	joined := strings.Join(strings.Fields(strings.TrimSpace(label)), "_")
	return strings.Replace(joined, ".", "", 1)
}

// AllotBudget splits the time left before deadline evenly across the remaining accounts.
func AllotBudget(deadline, now time.Time, remaining int) time.Duration {
	left := deadline.Sub(now)
	if left <= 0 || remaining <= 0 {
		return 0
	}
	return left / time.Duration(remaining)
}

func stbURL(baseURL, link string) string {
	return baseURL + "/stb/" + link
}

// ParseStatementAccounts reads the accounts of the statements page. It returns nil when the
// first section is not the account statements one.
func ParseStatementAccounts(doc *goquery.Document, baseURL string) []StatementAccount {
	if strings.TrimSpace(doc.Find("#entete1").Text()) != statementsSection {
		return nil
	}

	var accounts []StatementAccount
	doc.Find("#panneau1 .ca-table tbody").Each(func(_ int, tbody *goquery.Selection) {
		label := CleanDocumentLabel(tbody.Find("tr").Eq(0).Find("a").Eq(1).Text())
		link, _ := tbody.Find(".fleche-ouvrir").Attr("href")
		accounts = append(accounts, StatementAccount{Label: label, Link: stbURL(baseURL, link)})
	})
	return accounts
}

// ParseStatementEntries reads the statements of the index-th account from its detail page.
// Rows without a readable download link are skipped.
func ParseStatementEntries(doc *goquery.Document, baseURL string, account StatementAccount, index int) []Entry {
	var entries []Entry
	doc.Find("#panneau1 table tbody").Eq(index).Find("tr[title]").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")

		parts := strings.Split(strings.TrimSpace(cells.Eq(0).Text()), "/")
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		date := strings.Join(parts, "")

		href, _ := cells.Eq(3).Find("a").Attr("href")
		calls := strings.Split(href, ";")
		if len(calls) < 2 {
			return
		}
		link, ok := extract.CallArg(calls[1])
		if !ok {
			return
		}

		entries = append(entries, Entry{
			FileURL:  stbURL(baseURL, link) + "&typeaction=telechargement",
			FileName: fmt.Sprintf("releve_%s_%s.pdf", date, account.Label),
			SubPath:  account.Label,
		})
	})
	return entries
}

// Fetcher saves the statements of a legacy session.
type Fetcher struct {
	Saver FileSaver
	Now   func() time.Time
}

func NewFetcher(saver FileSaver) *Fetcher {
	return &Fetcher{Saver: saver, Now: time.Now}
}

// FetchStatements walks the statements page of a legacy session and saves every account's
// statements, giving each remaining account an equal share of the time left before deadline.
// Failures of one account do not stop the others; they are returned together.
func (f *Fetcher) FetchStatements(ctx context.Context, session *portal.Session, deadline time.Time) error {
	log := logger.FromContext(ctx)

	legacy, ok := session.Generation.(*portal.Legacy)
	if !ok {
		log.Debug().Str("generation", portal.GenerationName(session.Generation)).Msg("statements are only listed by the legacy portal")
		return nil
	}

	log.Info().Msg("getting account statements")
	page, err := session.Client.GetHTML(ctx, legacy.StatementsURL)
	if err != nil {
		return fmt.Errorf("FetchStatements: statements page: %w", err)
	}

	accounts := ParseStatementAccounts(page, legacy.BaseURL)
	if accounts == nil {
		log.Warn().Msg("no account statement")
		return nil
	}

	var result *multierror.Error
	for i, account := range accounts {
		log.Info().Str("label", account.Label).Msg("listing statements")

		detail, err := session.Client.GetHTML(ctx, account.Link)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("FetchStatements: %s: %w", account.Label, err))
			continue
		}
		entries := ParseStatementEntries(detail, legacy.BaseURL, account, i)

		now := f.Now()
		budget := AllotBudget(deadline, now, len(accounts)-i)
		if err := f.Saver.SaveFiles(ctx, entries, now.Add(budget)); err != nil {
			result = multierror.Append(result, fmt.Errorf("FetchStatements: %s: %w", account.Label, err))
		}
	}
	return result.ErrorOrNil()
}
