package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"timebill/internal/core"
)

// invoiceView is the computed invoice summary shown on invoice.html.
type invoiceView struct {
	ClientName string
	StartDate  string
	EndDate    string
	Entries    []entryRow
	TotalHours string
}

func newInvoiceView(inv core.Invoice) *invoiceView {
	return &invoiceView{
		ClientName: inv.ClientName,
		StartDate:  inv.Start.String(),
		EndDate:    inv.End.String(),
		Entries:    toRows(inv.Entries),
		TotalHours: inv.Total(),
	}
}

// pageData is the data every page template receives.
type pageData struct {
	Title   string
	Message string
	Error   string
	Entries []entryRow
	Invoice *invoiceView
}

// PageResponseBuilder assembles a server-rendered page response. Pages are
// always sent with status 200; errors show up in the page banner.
type PageResponseBuilder struct {
	template string
	data     pageData
}

// NewPage starts a response rendering the named template.
func NewPage(name, title string) *PageResponseBuilder {
	return &PageResponseBuilder{
		template: name,
		data:     pageData{Title: title},
	}
}

// Message sets the success banner.
func (b *PageResponseBuilder) Message(msg string) *PageResponseBuilder {
	b.data.Message = msg
	return b
}

// Error sets the error banner.
func (b *PageResponseBuilder) Error(msg string) *PageResponseBuilder {
	b.data.Error = msg
	return b
}

// Entries sets the entry list.
func (b *PageResponseBuilder) Entries(rows []entryRow) *PageResponseBuilder {
	b.data.Entries = rows
	return b
}

// Invoice sets the computed invoice summary.
func (b *PageResponseBuilder) Invoice(v *invoiceView) *PageResponseBuilder {
	b.data.Invoice = v
	return b
}

// Write executes the template into a buffer and sends it. Nothing is
// written to w when rendering fails; the caller decides how to report it.
func (b *PageResponseBuilder) Write(w http.ResponseWriter, t *template.Template) error {
	if t == nil {
		return fmt.Errorf("templates not loaded")
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, b.template, b.data); err != nil {
		return fmt.Errorf("execute %s: %w", b.template, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	return nil
}
