// Package extract isolates every pattern used to lift data out of portal markup.
// Each function fails with an UNPARSEABLE_RESPONSE error when its pattern is absent.
package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dvloznov/agricole-sync/internal/domain"
)

var (
	loginPathPattern   = regexp.MustCompile(`var chemin = "(.*)".*\|`)
	quotedArgPattern   = regexp.MustCompile(`'(.*)'`)
	parenArgPattern    = regexp.MustCompile(`\('(.*)'\)`)
	synthesisInitRegex = regexp.MustCompile(`(?s)syntheseController.init\(({.*}),\s{.*}\)`)
)

func unparseable(msg string) error {
	return domain.NewError(domain.KindUnparseable, msg, nil)
}

// LegacyLoginURL returns the login URL assigned to the "chemin" variable of the legacy
// home page inline script.
func LegacyLoginURL(doc *goquery.Document) (string, error) {
	var loginURL string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		script := strings.TrimSpace(s.Text())
		if !strings.Contains(script, `var chemin = "`) {
			return true
		}
		if m := loginPathPattern.FindStringSubmatch(script); m != nil {
			loginURL = m[1]
		}
		return false
	})
	if loginURL == "" {
		return "", unparseable("legacy login url not found")
	}
	return loginURL, nil
}

// QuotedArg returns the text between the first and the last single quote of s.
func QuotedArg(s string) (string, bool) {
	m := quotedArgPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CallArg returns the quoted argument of a call such as "javascript:go('x')".
func CallArg(s string) (string, bool) {
	m := parenArgPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SynthesisInitJSON returns the account synthesis JSON passed as first argument to the
// controller initialization of the modern landing page.
func SynthesisInitJSON(doc *goquery.Document) ([]byte, error) {
	init, ok := doc.Find(".Synthesis-main").First().Attr("data-ng-init")
	if !ok {
		return nil, unparseable("synthesis block not found")
	}
	m := synthesisInitRegex.FindStringSubmatch(init)
	if m == nil {
		return nil, unparseable("synthesis init call not found")
	}
	if !json.Valid([]byte(m[1])) {
		return nil, unparseable("synthesis init argument is not valid JSON")
	}
	return []byte(m[1]), nil
}

// FormFields returns the successful controls of a form, the way a browser would submit it.
func FormFields(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(s) {
		case "select":
			s.Find("option[selected]").Each(func(_ int, o *goquery.Selection) {
				v, ok := o.Attr("value")
				if !ok {
					v = o.Text()
				}
				values.Add(name, v)
			})
		case "textarea":
			values.Add(name, s.Text())
		default:
			typ := strings.ToLower(s.AttrOr("type", "text"))
			switch typ {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); !checked {
					return
				}
				values.Add(name, s.AttrOr("value", "on"))
			default:
				values.Add(name, s.AttrOr("value", ""))
			}
		}
	})
	return values
}
