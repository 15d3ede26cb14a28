// Package broker provides read-only broker integrations for portfolio data.
// Zerodha Kite is the primary broker (stocks and mutual funds); Groww is
// secondary (stocks only). Both return canonical models from pkg/models;
// enrichment happens in the portfolio layer.
package broker

import (
	"context"
	"fmt"

	"github.com/seenimoa/investez/pkg/models"
)

// Broker is the common read surface for portfolio data.
type Broker interface {
	// Name returns the broker identifier ("kite", "groww").
	Name() string

	// Holdings returns delivery equity holdings.
	Holdings(ctx context.Context) ([]models.Holding, error)

	// MFHoldings returns mutual fund holdings. Brokers without an MF API
	// return an empty slice.
	MFHoldings(ctx context.Context) ([]models.MFHolding, error)
}

// --- Sentinel errors ---

// ErrNotConfigured is returned when a broker has no credentials configured.
var ErrNotConfigured = fmt.Errorf("broker not configured")

// ErrNotConnected is returned when a broker has no active session.
var ErrNotConnected = fmt.Errorf("broker not connected")

// TokenExpiredError signals that a broker session has lapsed and the user
// must re-authenticate. Callers match it with errors.As to tell an expired
// session apart from transient fetch failures.
type TokenExpiredError struct {
	Broker string
}

func (e *TokenExpiredError) Error() string {
	return e.Broker + "_token_expired"
}
