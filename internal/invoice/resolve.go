package invoice

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ResolveEntities fills in EntityID for records that lack one when the store
// can look it up. Unresolved records keep an empty EntityID, which scores with
// the default importance. The input slice is not modified.
func ResolveEntities(ctx context.Context, logger *zap.Logger, store Store, invoices []Invoice) ([]Invoice, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver, ok := store.(EntityResolver)
	resolved := make([]Invoice, len(invoices))
	copy(resolved, invoices)
	if !ok {
		return resolved, nil
	}

	for i := range resolved {
		if resolved[i].EntityID != "" {
			continue
		}
		entityID, found, err := resolver.EntityForInvoice(ctx, resolved[i].ID)
		if err != nil {
			return nil, fmt.Errorf("invoice: resolve entity for %s: %w", resolved[i].ID, err)
		}
		if !found {
			logger.Debug("no owning entity for invoice, using default importance",
				zap.String("op", "invoice.ResolveEntities"),
				zap.String("invoice", resolved[i].ID),
			)
			continue
		}
		resolved[i].EntityID = entityID
	}
	return resolved, nil
}
