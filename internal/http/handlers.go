package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"timebill/internal/log"
	"timebill/internal/middleware/trace"
)

const (
	titleHome      = "Log Time"
	titleHealth    = "Health"
	titleDashboard = "Dashboard"
	titleInvoice   = "Invoice"
)

// handleHealth renders the liveness page.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, NewPage("health.html", titleHealth))
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["store"] = "ok"
	case s.ready(ctx) != nil:
		checks["store"] = "failed: store unreachable"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		checks["store"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"checks":     checks,
		"metrics":    s.metrics(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": trace.GetRequestID(r.Context()),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, NewPage("index.html", titleHome))
}

func (s *Server) handleLogTime(w http.ResponseWriter, r *http.Request) {
	page := NewPage("index.html", titleHome)

	var form logTimeForm
	if err := bindForm(w, r, &form); err != nil {
		s.fail(w, r, page, log.OpLog, err)
		return
	}
	if _, err := s.entries.Log(r.Context(), form.input()); err != nil {
		s.fail(w, r, page, log.OpLog, err)
		return
	}
	s.render(w, r, page.Message(msgLogged))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, NewPage("dashboard.html", titleDashboard))
}

func (s *Server) handleEditTime(w http.ResponseWriter, r *http.Request) {
	page := NewPage("dashboard.html", titleDashboard)

	var form editTimeForm
	if err := bindForm(w, r, &form); err != nil {
		s.failDashboard(w, r, page, log.OpEdit, err)
		return
	}
	index, err := parseIndex(form.ItemID)
	if err != nil {
		s.failDashboard(w, r, page, log.OpEdit, err)
		return
	}
	if _, err := s.entries.Edit(r.Context(), index, form.input()); err != nil {
		s.failDashboard(w, r, page, log.OpEdit, err)
		return
	}
	s.renderDashboard(w, r, page.Message(msgUpdated))
}

func (s *Server) handleDeleteTime(w http.ResponseWriter, r *http.Request) {
	page := NewPage("dashboard.html", titleDashboard)

	var form deleteTimeForm
	if err := bindForm(w, r, &form); err != nil {
		s.failDashboard(w, r, page, log.OpDelete, err)
		return
	}
	index, err := parseIndex(form.ItemID)
	if err != nil {
		s.failDashboard(w, r, page, log.OpDelete, err)
		return
	}
	if _, err := s.entries.Delete(r.Context(), index); err != nil {
		s.failDashboard(w, r, page, log.OpDelete, err)
		return
	}
	s.renderDashboard(w, r, page.Message(msgDeleted))
}

func (s *Server) handleInvoiceForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, NewPage("invoice.html", titleInvoice))
}

func (s *Server) handleGenerateInvoice(w http.ResponseWriter, r *http.Request) {
	page := NewPage("invoice.html", titleInvoice)

	var form invoiceForm
	if err := bindForm(w, r, &form); err != nil {
		s.fail(w, r, page, log.OpInvoice, err)
		return
	}
	inv, err := s.invoices.Generate(r.Context(), form.ClientName, form.StartDate, form.EndDate)
	if err != nil {
		s.fail(w, r, page, log.OpInvoice, err)
		return
	}
	s.render(w, r, page.Invoice(newInvoiceView(inv)))
}

// renderDashboard loads the current entries into page and renders it.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, page *PageResponseBuilder) {
	items, err := s.entries.List(r.Context())
	if err != nil {
		s.logFailure(r, log.OpList, err)
		page.Error(msgUnexpected)
	}
	s.render(w, r, page.Entries(toRows(items)))
}

// failDashboard reports err on the dashboard, which still lists entries.
func (s *Server) failDashboard(w http.ResponseWriter, r *http.Request, page *PageResponseBuilder, op string, err error) {
	if errors.Is(err, errBadForm) {
		s.badRequest(w, r, op, err)
		return
	}
	msg, expected := errorMessage(err)
	if !expected {
		s.logFailure(r, op, err)
	}
	s.renderDashboard(w, r, page.Error(msg))
}

// fail reports err on a page without an entry list.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, page *PageResponseBuilder, op string, err error) {
	if errors.Is(err, errBadForm) {
		s.badRequest(w, r, op, err)
		return
	}
	msg, expected := errorMessage(err)
	if !expected {
		s.logFailure(r, op, err)
	}
	s.render(w, r, page.Error(msg))
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable form body",
		log.FieldOperation, op,
		log.FieldError, err,
		log.FieldErrorType, log.ErrorTypeValidation)
	http.Error(w, "invalid request body", http.StatusBadRequest)
}

func (s *Server) logFailure(r *http.Request, op string, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "Request failed", err, op, nil)
}

// render writes page, falling back to a plain 500 when the template fails.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page *PageResponseBuilder) {
	if err := page.Write(w, s.templates); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
