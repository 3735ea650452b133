// Package quota enforces per-identity daily scan limits with
// calendar-day rollover, backed by the persistence layer's
// transactional counter increment.
//
// Grounded on internal/api/ratelimit.go's per-key bucket bookkeeping
// idiom, adapted from a token-bucket to a calendar-day counter since
// the spec's quota resets at day boundaries rather than continuously
// refilling.
package quota

import (
	"context"
	"time"

	"github.com/Jpatching/daybreakscan/pkg/models"
)

const (
	defaultWalletDailyLimit = 3
	defaultIPDailyLimit     = 1
)

// Store is the persistence dependency quota needs: read current usage,
// and atomically increment it, rolling the counter over on a new day.
type Store interface {
	GetUsage(ctx context.Context, identity models.Identity) (scansToday int, lastReset time.Time, err error)
	IncrementUsage(ctx context.Context, identity models.Identity, today time.Time) error
}

// Gate enforces daily quotas per identity.
type Gate struct {
	store           Store
	walletDailyLimit int
	ipDailyLimit     int
	now             func() time.Time
}

// New builds a Gate. walletLimit/ipLimit <= 0 use the spec defaults
// (3 wallet, 1 IP).
func New(store Store, walletLimit, ipLimit int) *Gate {
	if walletLimit <= 0 {
		walletLimit = defaultWalletDailyLimit
	}
	if ipLimit <= 0 {
		ipLimit = defaultIPDailyLimit
	}
	return &Gate{store: store, walletDailyLimit: walletLimit, ipDailyLimit: ipLimit, now: time.Now}
}

// Allow reports whether identity has remaining quota today. Admin
// identities are always allowed. The caller is responsible for
// calling Consume after a successful scan.
func (g *Gate) Allow(ctx context.Context, identity models.Identity) (allowed bool, limit, used int, err error) {
	if identity.Admin {
		return true, 0, 0, nil
	}

	limit = g.limitFor(identity)
	scansToday, lastReset, err := g.store.GetUsage(ctx, identity)
	if err != nil {
		return false, limit, 0, err
	}

	today := g.now().UTC().Truncate(24 * time.Hour)
	if lastReset.UTC().Truncate(24 * time.Hour).Before(today) {
		scansToday = 0
	}

	return scansToday < limit, limit, scansToday, nil
}

// Consume records one scan against identity's daily counter, rolling
// over to zero first if the stored last-reset predates today.
func (g *Gate) Consume(ctx context.Context, identity models.Identity) error {
	today := g.now().UTC().Truncate(24 * time.Hour)
	return g.store.IncrementUsage(ctx, identity, today)
}

func (g *Gate) limitFor(identity models.Identity) int {
	if identity.Kind == models.IdentityWallet {
		return g.walletDailyLimit
	}
	return g.ipDailyLimit
}
