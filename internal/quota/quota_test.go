package quota

import (
	"context"
	"testing"
	"time"

	"github.com/Jpatching/daybreakscan/pkg/models"
)

type fakeStore struct {
	scansToday int
	lastReset  time.Time
	incremented int
}

func (f *fakeStore) GetUsage(ctx context.Context, identity models.Identity) (int, time.Time, error) {
	return f.scansToday, f.lastReset, nil
}
func (f *fakeStore) IncrementUsage(ctx context.Context, identity models.Identity, today time.Time) error {
	f.incremented++
	return nil
}

func TestAllowWithinLimit(t *testing.T) {
	store := &fakeStore{scansToday: 1, lastReset: time.Now()}
	g := New(store, 0, 0)

	allowed, limit, used, err := g.Allow(context.Background(), models.Identity{Kind: models.IdentityWallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || limit != 3 || used != 1 {
		t.Fatalf("expected allowed with limit 3 used 1, got allowed=%v limit=%d used=%d", allowed, limit, used)
	}
}

func TestAllowExhaustedDenies(t *testing.T) {
	store := &fakeStore{scansToday: 3, lastReset: time.Now()}
	g := New(store, 0, 0)

	allowed, _, _, err := g.Allow(context.Background(), models.Identity{Kind: models.IdentityWallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("expected quota-exhausted identity to be denied")
	}
}

func TestAllowRollsOverOnNewDay(t *testing.T) {
	store := &fakeStore{scansToday: 3, lastReset: time.Now().Add(-48 * time.Hour)}
	g := New(store, 0, 0)

	allowed, _, used, err := g.Allow(context.Background(), models.Identity{Kind: models.IdentityWallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || used != 0 {
		t.Fatalf("expected rollover to reset usage to 0, got allowed=%v used=%d", allowed, used)
	}
}

func TestAllowAdminBypassesQuota(t *testing.T) {
	store := &fakeStore{scansToday: 999, lastReset: time.Now()}
	g := New(store, 0, 0)

	allowed, _, _, err := g.Allow(context.Background(), models.Identity{Kind: models.IdentityWallet, Admin: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("expected admin identity to always be allowed")
	}
}

func TestAllowIPUsesLowerDefaultLimit(t *testing.T) {
	store := &fakeStore{scansToday: 1, lastReset: time.Now()}
	g := New(store, 0, 0)

	allowed, limit, _, err := g.Allow(context.Background(), models.Identity{Kind: models.IdentityIP})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 1 {
		t.Fatalf("expected IP daily limit 1, got %d", limit)
	}
	if allowed {
		t.Fatal("expected IP identity at usage 1/1 to be denied")
	}
}
