package core

import "github.com/shopspring/decimal"

// Invoice is the summary of work billed to a client over a date range.
type Invoice struct {
	ClientName string
	Start      Date
	End        Date
	Entries    []Entry
	TotalHours float64
}

// GenerateInvoice selects the entries dated within [start, end] in their
// original order and totals their hours. An inverted range selects nothing.
func GenerateInvoice(client string, start, end Date, entries []Entry) Invoice {
	inv := Invoice{
		ClientName: client,
		Start:      start,
		End:        end,
		Entries:    []Entry{},
	}
	for _, e := range entries {
		if e.Date.Within(start, end) {
			inv.Entries = append(inv.Entries, e)
		}
	}
	inv.TotalHours = sumHours(inv.Entries).InexactFloat64()
	return inv
}

// Total returns the exact sum of the selected hours. It is not rounded, so
// small entries never vanish from the billed total.
func (i Invoice) Total() string {
	return sumHours(i.Entries).String()
}

func sumHours(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(decimal.NewFromFloat(e.Hours))
	}
	return total
}
