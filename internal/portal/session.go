package portal

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Requester is the request surface used by the sync steps.
type Requester interface {
	GetHTML(ctx context.Context, rawURL string) (*goquery.Document, error)
	PostFormHTML(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*goquery.Document, error)
	GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error
	PostJSON(ctx context.Context, rawURL string, body any, headers map[string]string, out any) error
	PostFormJSON(ctx context.Context, rawURL string, form url.Values, headers map[string]string, out any) error
	GetBinary(ctx context.Context, rawURL string) ([]byte, error)
}

var _ Requester = (*Client)(nil)

// Session is an authenticated portal session. It lives for one run and is never persisted.
type Session struct {
	Client     Requester
	BankURL    string
	Generation Generation
}

// Generation is the portal generation the session was opened on: *Legacy or *Modern.
type Generation interface {
	generation()
}

// Legacy holds the state of a session opened on the legacy portal.
type Legacy struct {
	BaseURL       string // scheme and host of LoginURL
	LoginURL      string
	StatementsURL string
	Page          *goquery.Document // accounts page returned by the login
}

// Modern holds the state of a session opened on the modern portal.
type Modern struct {
	BankURL string
	Page    *goquery.Document // landing page the login redirected to
}

func (*Legacy) generation() {}
func (*Modern) generation() {}

// GenerationName returns "legacy" or "modern" for logging.
func GenerationName(g Generation) string {
	switch g.(type) {
	case *Legacy:
		return "legacy"
	case *Modern:
		return "modern"
	default:
		return "unknown"
	}
}
