package upstream

import (
	"context"

	"github.com/Jpatching/daybreakscan/internal/rpcrouter"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

// enhancedHistoryClient is the default EnhancedHistory adapter, a thin
// wrapper over the router's REST call — in the style of
// internal/bitcoin/client.go's "--- RPC Wrappers ---" methods.
type enhancedHistoryClient struct {
	router *rpcrouter.Router
}

// NewEnhancedHistory builds the default enhanced-history adapter.
func NewEnhancedHistory(router *rpcrouter.Router) EnhancedHistory {
	return &enhancedHistoryClient{router: router}
}

func (c *enhancedHistoryClient) Transactions(ctx context.Context, address string, limit int, sort SignatureSort, before string) ([]models.EnhancedTx, error) {
	return c.router.EnhancedTxs(ctx, address, limit, rpcrouter.SortOrder(sort), before)
}
