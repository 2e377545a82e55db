// Package auth opens an authenticated portal session, trying the legacy portal first and
// falling back to the modern one when the region no longer serves it.
package auth

import (
	"context"
	"strings"

	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
)

// State is a step of the login state machine.
type State string

const (
	StateStart             State = "Start"
	StateLegacyAttempt     State = "LegacyAttempt"
	StateLegacySuccess     State = "LegacySuccess"
	StateLegacyUnavailable State = "LegacyUnavailable"
	StateModernAttempt     State = "ModernAttempt"
	StateModernSuccess     State = "ModernSuccess"
	StateFailed            State = "Failed"
)

// Credentials of the portal customer. Password is the six digit code typed on the keypad.
type Credentials struct {
	Login    string
	Password string
}

// Engine logs a customer in on one regional bank.
type Engine struct {
	client  portal.Requester
	bankURL string
	rootURL string
	creds   Credentials

	// OnTransition is called on every state change when set.
	OnTransition func(from, to State)
}

// NewEngine creates an engine for the regional bank URL.
func NewEngine(client portal.Requester, bankURL string, creds Credentials) *Engine {
	return &Engine{
		client:  client,
		bankURL: strings.TrimRight(bankURL, "/"),
		rootURL: RootURL,
		creds:   creds,
	}
}

// WithRootURL overrides the host the modern login redirects to.
func (e *Engine) WithRootURL(rootURL string) *Engine {
	e.rootURL = strings.TrimRight(rootURL, "/")
	return e
}

// Login runs the state machine. Any returned error is a *domain.Error.
func (e *Engine) Login(ctx context.Context) (*portal.Session, error) {
	log := logger.FromContext(ctx).With().Str("login", logger.Mask(e.creds.Login)).Logger()
	state := StateStart

	move := func(to State) {
		log.Info().Str("from", string(state)).Str("to", string(to)).Msg("login state")
		if e.OnTransition != nil {
			e.OnTransition(state, to)
		}
		state = to
	}

	move(StateLegacyAttempt)
	res := e.AttemptLegacyLogin(ctx)
	switch res.Outcome {
	case LegacyOK:
		move(StateLegacySuccess)
		return res.Session, nil
	case LegacyFailed:
		move(StateFailed)
		return nil, res.Err
	}

	move(StateLegacyUnavailable)
	move(StateModernAttempt)
	session, err := e.AttemptModernLogin(ctx)
	if err != nil {
		move(StateFailed)
		return nil, err
	}
	move(StateModernSuccess)
	return session, nil
}
