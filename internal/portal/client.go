// Package portal is the HTTP client shared by every request of one sync run.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

// UserAgent is the only browser identity the modern portal accepts.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:60.0) Gecko/20100101 Firefox/60.0"

const defaultTimeout = 60 * time.Second

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// DecodeBody decodes the JSON error payload of the response.
func (e *StatusError) DecodeBody(out any) error {
	if err := json.Unmarshal(e.Body, out); err != nil {
		return fmt.Errorf("DecodeBody: %w", err)
	}
	return nil
}

// Client issues requests against the portal, keeping session cookies across calls.
// It is not safe for concurrent use by several runs.
type Client struct {
	http *resty.Client
}

// New creates a client with an empty cookie jar.
func New() (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("New: cookie jar: %w", err)
	}

	rc := resty.New().
		SetCookieJar(jar).
		SetHeader("User-Agent", UserAgent).
		SetRetryCount(0).
		SetTimeout(defaultTimeout)

	return &Client{http: rc}, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, prepare func(r *resty.Request)) (*resty.Response, error) {
	log := logger.FromContext(ctx)
	started := time.Now()

	req := c.http.R().SetContext(ctx)
	if prepare != nil {
		prepare(req)
	}

	resp, err := req.Execute(method, rawURL)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("url", rawURL).Msg("portal request failed")
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}

	log.Debug().
		Str("method", method).
		Str("url", rawURL).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(started)).
		Msg("portal request")

	if !resp.IsSuccess() {
		return nil, &StatusError{
			Method:     method,
			URL:        rawURL,
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
		}
	}
	return resp, nil
}

func parseHTML(resp *resty.Response) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(resp.Body()), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parseHTML: charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parseHTML: %w", err)
	}
	return doc, nil
}

func decodeJSON(resp *resty.Response, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decoding %s: %w", resp.Request.URL, err)
	}
	return nil
}

// GetHTML fetches a page and parses it as HTML.
func (c *Client) GetHTML(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return parseHTML(resp)
}

// PostFormHTML posts an url-encoded form and parses the response as HTML.
func (c *Client) PostFormHTML(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*goquery.Document, error) {
	resp, err := c.do(ctx, http.MethodPost, rawURL, func(r *resty.Request) {
		r.SetFormDataFromValues(form).SetHeaders(headers)
	})
	if err != nil {
		return nil, err
	}
	return parseHTML(resp)
}

// GetJSON fetches rawURL with the query parameters and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL, func(r *resty.Request) {
		r.SetHeader("Accept", "application/json").SetQueryParamsFromValues(query)
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// PostJSON posts body encoded as JSON and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body any, headers map[string]string, out any) error {
	resp, err := c.do(ctx, http.MethodPost, rawURL, func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetHeaders(headers).
			SetBody(body)
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// PostFormJSON posts an url-encoded form and decodes the JSON response into out.
func (c *Client) PostFormJSON(ctx context.Context, rawURL string, form url.Values, headers map[string]string, out any) error {
	resp, err := c.do(ctx, http.MethodPost, rawURL, func(r *resty.Request) {
		r.SetHeader("Accept", "application/json").
			SetFormDataFromValues(form).
			SetHeaders(headers)
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// GetBinary fetches rawURL and returns the raw body bytes.
func (c *Client) GetBinary(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
