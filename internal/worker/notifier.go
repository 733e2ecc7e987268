package worker

import (
	"context"
	"sort"
	"sync"

	"timebill/internal/amqp"
	"timebill/internal/core"
	"timebill/internal/log"
)

// unknownType counts messages whose type this notifier does not recognise.
const unknownType = "unknown"

// Notifier turns entry change messages into structured log lines and keeps
// running counts per event type.
type Notifier struct {
	logger *log.Logger

	mu     sync.Mutex
	counts map[string]int64
}

func NewNotifier(logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.NewDefault()
	}
	return &Notifier{
		logger: logger.WithComponent(log.ComponentNotifier),
		counts: make(map[string]int64),
	}
}

// HandleEntryEvent logs one message. It never asks for redelivery: a message
// that cannot be understood is counted and dropped.
func (n *Notifier) HandleEntryEvent(ctx context.Context, msg *amqp.EntryEventMessage) error {
	ev := msg.ToEvent()

	typ := string(ev.Type)
	switch ev.Type {
	case core.EntryLogged, core.EntryUpdated, core.EntryDeleted:
	default:
		typ = unknownType
	}
	total := n.incr(typ)

	fields := log.NewFields().
		WithEntry(ev.Entry.ID, ev.Index, ev.Entry.Date.String(), ev.Entry.Hours).
		WithOperation(log.OpConsume)
	fields[log.FieldEventType] = msg.Type
	fields["type_total"] = total

	if typ == unknownType {
		n.logger.WarnContext(ctx, "Unrecognised entry event", fields.ToSlice()...)
		return nil
	}
	n.logger.InfoContext(ctx, "Entry event received", fields.ToSlice()...)
	return nil
}

func (n *Notifier) incr(typ string) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[typ]++
	return n.counts[typ]
}

// Counts returns a copy of the per-type counters.
func (n *Notifier) Counts() map[string]int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]int64, len(n.counts))
	for k, v := range n.counts {
		out[k] = v
	}
	return out
}

// LogSummary writes the counters as a single line, types sorted by name.
func (n *Notifier) LogSummary(ctx context.Context) {
	counts := n.Counts()
	types := make([]string, 0, len(counts))
	for k := range counts {
		types = append(types, k)
	}
	sort.Strings(types)

	args := make([]any, 0, len(types)*2)
	for _, k := range types {
		args = append(args, k, counts[k])
	}
	n.logger.InfoContext(ctx, "Entry event totals", args...)
}
