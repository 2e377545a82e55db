package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
)

// LegacyOutcome is the result tag of a legacy login attempt.
type LegacyOutcome int

const (
	LegacyOK LegacyOutcome = iota
	LegacyUnavailable
	LegacyFailed
)

func (o LegacyOutcome) String() string {
	switch o {
	case LegacyOK:
		return "ok"
	case LegacyUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// LegacyResult carries a session when Outcome is LegacyOK and an error when it is LegacyFailed.
type LegacyResult struct {
	Outcome LegacyOutcome
	Session *portal.Session
	Err     error
}

// accountsTableRow matches account rows of the legacy accounts table; it is only present
// once authenticated.
const accountsTableRow = ".ca-table tbody tr img"

func legacyInitForm() url.Values {
	return url.Values{
		"TOP_ORIGINE":          {"V"},
		"vitrine":              {"O"},
		"largeur_ecran":        {"800"},
		"hauteur_ecran":        {"600"},
		"origine":              {"vitrine"},
		"situationTravail":     {"BANQUAIRE"},
		"canal":                {"WEB"},
		"typeAuthentification": {"CLIC_ALLER"},
		"urlOrigine":           {"http://www.ca-paris.fr"},
		"tracking":             {"O"},
	}
}

func legacyFailure(err error) LegacyResult {
	var se *portal.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusNotFound {
			return LegacyResult{Outcome: LegacyUnavailable}
		}
		return LegacyResult{
			Outcome: LegacyFailed,
			Err:     domain.NewError(domain.KindVendorDown, fmt.Sprintf("legacy portal answered %d", se.StatusCode), err),
		}
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return LegacyResult{Outcome: LegacyFailed, Err: err}
	}
	return LegacyResult{Outcome: LegacyFailed, Err: domain.NewError(domain.KindVendorDown, "legacy portal unreachable", err)}
}

// AttemptLegacyLogin runs the legacy multi-step login. A not-found answer at any step
// means the region moved to the modern portal.
func (e *Engine) AttemptLegacyLogin(ctx context.Context) LegacyResult {
	log := logger.FromContext(ctx)

	home, err := e.client.GetHTML(ctx, e.bankURL+"/particuliers.html")
	if err != nil {
		return legacyFailure(err)
	}

	loginURL, err := extract.LegacyLoginURL(home)
	if err != nil {
		return legacyFailure(err)
	}
	u, err := url.Parse(loginURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return legacyFailure(domain.NewError(domain.KindUnparseable, fmt.Sprintf("invalid legacy login url %q", loginURL), err))
	}
	baseURL := u.Scheme + "://" + u.Host

	keypadPage, err := e.client.PostFormHTML(ctx, loginURL, legacyInitForm(), nil)
	if err != nil {
		return legacyFailure(err)
	}

	table, err := BuildDecodeTable(keypadPage)
	if err != nil {
		return legacyFailure(err)
	}
	codes, err := EncodeLegacyPassword(table, e.creds.Password)
	if err != nil {
		return legacyFailure(err)
	}

	form := url.Values{
		"idtcm":                {""},
		"tracking":             {"O"},
		"origine":              {"vitrine"},
		"situationTravail":     {"BANCAIRE"},
		"canal":                {"WEB"},
		"typeAuthentification": {"CLIC_RETOUR"},
		"idUnique":             {keypadPage.Find("input[name=idUnique]").AttrOr("value", "")},
		"caisse":               {keypadPage.Find("input[name=caisse]").AttrOr("value", "")},
		"CCCRYC":               {codes},
		"CCCRYC2":              {"000000"},
		"CCPTE":                {e.creds.Login},
	}
	page, err := e.client.PostFormHTML(ctx, loginURL, form, nil)
	if err != nil {
		return legacyFailure(err)
	}

	if page.Find(accountsTableRow).Length() == 0 {
		return legacyFailure(domain.NewError(domain.KindLoginFailed, "legacy accounts table missing after login", nil))
	}

	token := page.Find("input[name=sessionSAG]").AttrOr("value", "")
	if token == "" {
		log.Warn().Msg("legacy session token missing, statements will not be reachable")
	}

	return LegacyResult{
		Outcome: LegacyOK,
		Session: &portal.Session{
			Client:  e.client,
			BankURL: e.bankURL,
			Generation: &portal.Legacy{
				BaseURL:       baseURL,
				LoginURL:      loginURL,
				StatementsURL: StatementsURL(baseURL, token),
				Page:          page,
			},
		},
	}
}

// StatementsURL returns the legacy statements page for a session token.
func StatementsURL(baseURL, sessionSAG string) string {
	return fmt.Sprintf("%s/stb/entreeBam?sessionSAG=%s&stbpg=pagePU&act=Edocsynth&stbzn=bnt&actCrt=Edocsynth#null",
		baseURL, url.QueryEscape(sessionSAG))
}
