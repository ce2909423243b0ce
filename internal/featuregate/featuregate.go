// Package featuregate decides whether a public page shows its real
// content or a coming-soon placeholder. Three sources are combined
// with OR: a demo-mode URL parameter, the advisory admin probe, and
// the server-side flag map.
package featuregate

import (
	"context"
	"net/url"
	"strings"
)

// Service is the slice of the API the gate consults.
type Service interface {
	VerifyAdmin(ctx context.Context) (bool, error)
	FeatureFlags(ctx context.Context) (map[string]bool, error)
}

// DemoEnabled reports whether demo=true appears in the URL. Hash
// routing puts the live query inside the fragment, so both the
// standard query string and the fragment's own query portion are
// checked here, in one place.
func DemoEnabled(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Query().Get("demo") == "true" {
		return true
	}
	if i := strings.Index(u.Fragment, "?"); i >= 0 {
		q, err := url.ParseQuery(u.Fragment[i+1:])
		if err == nil && q.Get("demo") == "true" {
			return true
		}
	}
	return false
}

// Gate evaluates the feature decision for one page.
type Gate struct {
	svc Service
}

func NewGate(svc Service) *Gate {
	return &Gate{svc: svc}
}

// Enabled is true when any source grants access: demo mode, admin
// session, or the page's server flag. Demo is checked first only to
// skip the round trips; the result is a plain OR and does not depend
// on ordering. The admin probe is advisory, so its errors count as
// "not admin". A failed flag fetch falls back to the page's local
// default, as does a flag map that has no entry for the page.
func (g *Gate) Enabled(ctx context.Context, rawURL, flag string, fallback bool) bool {
	if DemoEnabled(rawURL) {
		return true
	}

	if admin, err := g.svc.VerifyAdmin(ctx); err == nil && admin {
		return true
	}

	flags, err := g.svc.FeatureFlags(ctx)
	if err != nil {
		return fallback
	}
	v, ok := flags[flag]
	if !ok {
		return fallback
	}
	return v
}
