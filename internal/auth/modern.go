package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/dvloznov/agricole-sync/internal/portal/extract"
)

// Modern portal paths, relative to the regional bank URL.
const (
	AccountsPath      = "particulier/acceder-a-mes-comptes.html"
	KeypadPath        = "particulier/acceder-a-mes-comptes.authenticationKeypad.json"
	SecurityCheckPath = "particulier/acceder-a-mes-comptes.html/j_security_check"
)

// RootURL hosts the pages the modern login redirects to.
const RootURL = "https://www.credit-agricole.fr"

const (
	strongAuthMarker   = "dsp2"
	badCredentialsText = "Votre identification est incorrecte"
	incidentText       = "Un incident technique"
)

type keypadResponse struct {
	KeyLayout KeyLayout `json:"keyLayout"`
	KeypadID  string    `json:"keypadId"`
}

type securityCheckResponse struct {
	URL string `json:"url"`
}

type securityCheckError struct {
	URL   string `json:"url"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ClassifyModernFailure maps a failed security check to an error kind.
func ClassifyModernFailure(err error) error {
	var se *portal.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		return domain.NewError(domain.KindLoginFailed, "security check failed", err)
	}

	var body securityCheckError
	if decodeErr := se.DecodeBody(&body); decodeErr != nil {
		return domain.NewError(domain.KindLoginFailed, "security check failed with an unreadable answer", err)
	}

	switch {
	case strings.Contains(body.URL, strongAuthMarker):
		return domain.NewError(domain.KindUserActionNeeded, "strong authentication required", err)
	case strings.Contains(body.Error.Message, badCredentialsText):
		return domain.NewError(domain.KindLoginFailed, body.Error.Message, err)
	case strings.Contains(body.Error.Message, incidentText):
		return domain.NewError(domain.KindVendorDown, body.Error.Message, err)
	default:
		return domain.NewError(domain.KindLoginFailed, body.Error.Message, err)
	}
}

func vendorDown(msg string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewError(domain.KindVendorDown, msg, err)
}

// AttemptModernLogin runs the modern keypad login and returns a session on the landing page.
func (e *Engine) AttemptModernLogin(ctx context.Context) (*portal.Session, error) {
	log := logger.FromContext(ctx)
	accountsURL := e.bankURL + "/" + AccountsPath

	page, err := e.client.GetHTML(ctx, accountsURL)
	if err != nil {
		return nil, vendorDown("modern login page unavailable", err)
	}
	form := extract.FormFields(page.Find("form#loginForm"))

	var keypad keypadResponse
	err = e.client.PostJSON(ctx, e.bankURL+"/"+KeypadPath,
		map[string]string{"user_id": e.creds.Login},
		map[string]string{"Referer": accountsURL},
		&keypad)
	if err != nil {
		return nil, vendorDown("keypad provisioning failed", err)
	}

	positions, err := EncodeKeypadPositions(keypad.KeyLayout, e.creds.Password)
	if err != nil {
		return nil, err
	}

	form.Set("j_username", e.creds.Login)
	form.Set("j_password", positions)
	form.Set("keypadId", keypad.KeypadID)

	var check securityCheckResponse
	if err := e.client.PostFormJSON(ctx, e.bankURL+"/"+SecurityCheckPath, form, nil, &check); err != nil {
		classified := ClassifyModernFailure(err)
		log.Error().Err(classified).Msg("modern security check rejected")
		return nil, classified
	}
	if check.URL == "" {
		return nil, domain.NewError(domain.KindUnparseable, "security check answer carries no redirect", nil)
	}

	landing, err := e.client.GetHTML(ctx, e.rootURL+check.URL)
	if err != nil {
		return nil, vendorDown("landing page unavailable", err)
	}

	return &portal.Session{
		Client:     e.client,
		BankURL:    e.bankURL,
		Generation: &portal.Modern{BankURL: e.bankURL, Page: landing},
	}, nil
}
