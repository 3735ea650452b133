package cache

import "time"

// Category-appropriate TTLs per spec.md §4.2.
const (
	MetadataTTL      = 30 * time.Minute
	LivenessTTL      = 2 * time.Hour
	MintAuthorityTTL = 2 * time.Hour
	PriceTTL         = 5 * time.Minute
	RugReportTTL     = 30 * time.Minute
	NonceTTL         = 5 * time.Minute
)

// Categories bundles one Cache instance per lookup category. It is a
// process-wide singleton with explicit Init/Close, per spec.md §9's
// "global state" design note.
type Categories struct {
	Metadata      *Cache
	Liveness      *Cache
	MintAuthority *Cache
	Price         *Cache
	RugReport     *Cache
	Nonce         *Cache
}

// Init constructs a fresh set of category caches.
func Init() *Categories {
	return &Categories{
		Metadata:      New(MetadataTTL),
		Liveness:      New(LivenessTTL),
		MintAuthority: New(MintAuthorityTTL),
		Price:         New(PriceTTL),
		RugReport:     New(RugReportTTL),
		Nonce:         New(NonceTTL),
	}
}

// Close flushes and stops every category's background sweeper.
func (c *Categories) Close() {
	c.Metadata.Close()
	c.Liveness.Close()
	c.MintAuthority.Close()
	c.Price.Close()
	c.RugReport.Close()
	c.Nonce.Close()
}

// Reset is a test hook: tears down and reinitializes every category in
// place so tests can start from an empty cache without reconstructing
// every dependent client.
func (c *Categories) Reset() {
	c.Close()
	fresh := Init()
	*c = *fresh
}
