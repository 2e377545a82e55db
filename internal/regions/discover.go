package regions

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DirectoryURL lists every regional bank with its URL prefix.
const DirectoryURL = "https://www.credit-agricole.fr/particulier/acces-cr.html"

const siteRoot = "https://www.credit-agricole.fr/"

var listCrPattern = regexp.MustCompile(`NPC.listCr\[\d+\] = {regionalBankId: \d+, regionalBankName: "(.*)", regionalBankUrlPrefix: "/(.*)/" };`)

// Ids were handed out before these banks were renamed on the directory page.
var renames = map[string]string{
	"Paris":    "Île-de-France",
	"Nord Est": "Nord-Est",
}

// HTMLFetcher fetches and parses an HTML page.
type HTMLFetcher interface {
	GetHTML(ctx context.Context, url string) (*goquery.Document, error)
}

// Discover scrapes the public directory and returns the regions with their ids assigned.
func Discover(ctx context.Context, f HTMLFetcher) ([]Region, error) {
	doc, err := f.GetHTML(ctx, DirectoryURL)
	if err != nil {
		return nil, fmt.Errorf("Discover: %w", err)
	}
	return ParseDirectory(doc)
}

// ParseDirectory extracts the regional banks from the directory page. Regions are sorted by
// French collation of their name and numbered from 1.
func ParseDirectory(doc *goquery.Document) ([]Region, error) {
	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "regionalBankId") {
			script = s.Text()
			return false
		}
		return true
	})
	if script == "" {
		return nil, fmt.Errorf("ParseDirectory: no regional bank list found")
	}

	var out []Region
	for _, m := range listCrPattern.FindAllStringSubmatch(script, -1) {
		name := m[1]
		if renamed, ok := renames[name]; ok {
			name = renamed
		}
		out = append(out, Region{Name: name, URL: siteRoot + m[2]})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ParseDirectory: regional bank list is empty")
	}

	c := collate.New(language.French)
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(out[i].Name, out[j].Name) < 0
	})
	for i := range out {
		out[i].ID = i + 1
	}
	return out, nil
}
