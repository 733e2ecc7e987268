package services

import (
	"context"
	"fmt"
	"time"

	"timebill/internal/core"
	"timebill/internal/entries"
	"timebill/internal/log"
)

// EntryInput carries raw form values for an entry.
type EntryInput struct {
	Date        string
	Hours       string
	Description string
}

// EntryService validates input, applies it to the store and announces the
// change. Publishing is best effort and never fails the operation.
type EntryService struct {
	store     entries.Store
	publisher entries.EventPublisher
	now       func() time.Time
}

func NewEntryService(store entries.Store, publisher entries.EventPublisher) *EntryService {
	return &EntryService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

func parseEntry(in EntryInput) (core.Entry, error) {
	d, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("date %q: %w", in.Date, err)
	}
	h, err := core.ParseHours(in.Hours)
	if err != nil {
		return core.Entry{}, fmt.Errorf("hours %q: %w", in.Hours, err)
	}
	return core.Entry{Date: d, Hours: h, Description: in.Description}, nil
}

// Log appends a new entry.
func (s *EntryService) Log(ctx context.Context, in EntryInput) (core.Entry, error) {
	e, err := parseEntry(in)
	if err != nil {
		return core.Entry{}, err
	}
	saved, index, err := s.store.Append(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("append entry: %w", err)
	}

	s.announce(ctx, log.OpLog, core.EntryLogged, index, saved)
	return saved, nil
}

// Edit replaces the entry at index. The index is checked before the input so
// an unknown position reports ErrInvalidIndex even when the date is bad.
func (s *EntryService) Edit(ctx context.Context, index int, in EntryInput) (core.Entry, error) {
	n, err := s.store.Len(ctx)
	if err != nil {
		return core.Entry{}, fmt.Errorf("count entries: %w", err)
	}
	if index < 0 || index >= n {
		return core.Entry{}, fmt.Errorf("index %d of %d: %w", index, n, core.ErrInvalidIndex)
	}

	e, err := parseEntry(in)
	if err != nil {
		return core.Entry{}, err
	}
	saved, err := s.store.Replace(ctx, index, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("replace entry %d: %w", index, err)
	}

	s.announce(ctx, log.OpEdit, core.EntryUpdated, index, saved)
	return saved, nil
}

// Delete removes the entry at index.
func (s *EntryService) Delete(ctx context.Context, index int) (core.Entry, error) {
	removed, err := s.store.Remove(ctx, index)
	if err != nil {
		return core.Entry{}, fmt.Errorf("remove entry %d: %w", index, err)
	}

	s.announce(ctx, log.OpDelete, core.EntryDeleted, index, removed)
	return removed, nil
}

// List returns all entries in store order.
func (s *EntryService) List(ctx context.Context) ([]core.Entry, error) {
	items, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return items, nil
}

// announce logs a successful change and publishes it when a publisher is set.
func (s *EntryService) announce(ctx context.Context, op string, typ core.EventType, index int, e core.Entry) {
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogEntryChange(ctx, op, e.ID, index, e.Date.String(), e.Hours)

	if s.publisher == nil {
		return
	}
	ev := core.EntryEvent{Type: typ, Index: index, Entry: e, At: s.now()}
	if err := s.publisher.PublishEntryEvent(ctx, ev); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to publish entry event",
			log.FieldEventType, string(typ),
			log.FieldEntryID, e.ID,
			log.FieldEntryIndex, index,
			log.FieldError, err)
	}
}
