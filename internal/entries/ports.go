package entries

import (
	"context"

	"timebill/internal/core"
)

// Ports for outbound adapters.
type (
	// Store holds the ordered entry sequence. Positions are zero based and
	// shift down when an earlier entry is removed.
	Store interface {
		// Append adds e at the end, assigning an ID when e has none, and
		// returns the position it was stored at.
		Append(ctx context.Context, e core.Entry) (core.Entry, int, error)
		// Replace overwrites the entry at index, keeping its ID.
		Replace(ctx context.Context, index int, e core.Entry) (core.Entry, error)
		// Remove deletes the entry at index and returns it.
		Remove(ctx context.Context, index int) (core.Entry, error)
		// All returns a copy of the sequence in insertion order.
		All(ctx context.Context) ([]core.Entry, error)
		// Len returns the current number of entries.
		Len(ctx context.Context) (int, error)
	}

	// EventPublisher announces changes to the entry sequence.
	EventPublisher interface {
		PublishEntryEvent(ctx context.Context, ev core.EntryEvent) error
	}
)
