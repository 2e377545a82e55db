// Package accounts lists the customer's accounts from the page the login landed on.
package accounts

import (
	"context"
	"fmt"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
)

// Options tune account discovery.
type Options struct {
	// IgnoreMandatoryAccount drops accounts on which the customer is only a proxy holder.
	IgnoreMandatoryAccount bool
}

// Discover parses the accounts of the session's landing page.
func Discover(ctx context.Context, session *portal.Session, opts Options) ([]*domain.Account, error) {
	log := logger.FromContext(ctx)

	var (
		accounts []*domain.Account
		err      error
	)
	switch g := session.Generation.(type) {
	case *portal.Legacy:
		accounts, err = ParseLegacyAccounts(ctx, g.Page)
	case *portal.Modern:
		accounts, err = ParseModernAccounts(g.Page, opts)
	default:
		return nil, fmt.Errorf("Discover: unsupported portal generation %T", session.Generation)
	}
	if err != nil {
		return nil, fmt.Errorf("Discover: %w", err)
	}

	log.Info().
		Str("generation", portal.GenerationName(session.Generation)).
		Int("accounts", len(accounts)).
		Msg("accounts discovered")
	return accounts, nil
}
