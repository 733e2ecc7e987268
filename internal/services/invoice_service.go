package services

import (
	"context"
	"fmt"

	"timebill/internal/core"
	"timebill/internal/entries"
	"timebill/internal/log"
)

// InvoiceService builds invoice summaries from the current entries.
type InvoiceService struct {
	store entries.Store
}

func NewInvoiceService(store entries.Store) *InvoiceService {
	return &InvoiceService{store: store}
}

// Generate parses both bounds and totals the entries inside them. The range
// is not required to be ordered.
func (s *InvoiceService) Generate(ctx context.Context, client, start, end string) (core.Invoice, error) {
	from, err := core.ParseDate(start)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("start date %q: %w", start, err)
	}
	to, err := core.ParseDate(end)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("end date %q: %w", end, err)
	}

	items, err := s.store.All(ctx)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("list entries: %w", err)
	}
	inv := core.GenerateInvoice(client, from, to, items)
	log.FromContext(ctx).InfoContext(ctx, "Invoice generated", log.NewFields().
		WithInvoice(client, inv.Start.String(), inv.End.String(), len(inv.Entries), inv.Total()).
		WithOperation(log.OpInvoice).
		ToSlice()...)
	return inv, nil
}
