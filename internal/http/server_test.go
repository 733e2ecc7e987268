package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebill/internal/entries"
	"timebill/internal/entries/memory"
	"timebill/internal/services"
)

func newTestServer(t *testing.T, store entries.Store, mutate ...func(*Options)) *Server {
	t.Helper()
	opts := Options{
		Addr:     ":0",
		Entries:  services.NewEntryService(store, nil),
		Invoices: services.NewInvoiceService(store),
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestPagesRender(t *testing.T) {
	srv := newTestServer(t, memory.New())

	tests := []struct {
		path string
		want string
	}{
		{"/health", "Service is up and running."},
		{"/", `action="/log_time"`},
		{"/dashboard", "No time logged yet."},
		{"/invoice", `action="/generate_invoice"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, srv, tt.path)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
			assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
		})
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := get(t, srv, "/static/style.css")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/css")
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestUnknownPathAndWrongMethod(t *testing.T) {
	srv := newTestServer(t, memory.New())

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/nope").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, srv, "/log_time").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, post(t, srv, "/dashboard", url.Values{}).Code)
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(t, memory.New(), func(o *Options) {
			o.Ready = func(context.Context) error { return nil }
		})
		rr := get(t, srv, "/readyz")
		require.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, "ok", body.Checks["store"])
		assert.Equal(t, "ok", body.Checks["templates"])
	})

	t.Run("reports middleware counters", func(t *testing.T) {
		srv := newTestServer(t, memory.New(), func(o *Options) { o.RateLimitPerMinute = 1 })
		form := url.Values{"date_str": {"2024-01-01"}, "hours": {"1"}}
		post(t, srv, "/log_time", form)
		post(t, srv, "/log_time", form)
		get(t, srv, "/wp-admin/setup.php")

		var body struct {
			Metrics map[string]int64 `json:"metrics"`
		}
		require.NoError(t, json.Unmarshal(get(t, srv, "/readyz").Body.Bytes(), &body))
		assert.Equal(t, int64(1), body.Metrics["rate_limited"])
		assert.Equal(t, int64(1), body.Metrics["rate_limit_clients"])
		assert.Equal(t, int64(1), body.Metrics["suspicious_requests"])
		assert.GreaterOrEqual(t, body.Metrics["requests_total"], int64(3))
	})

	t.Run("store down", func(t *testing.T) {
		srv := newTestServer(t, memory.New(), func(o *Options) {
			o.Ready = func(context.Context) error { return errors.New("db closed") }
		})
		rr := get(t, srv, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), `"not_ready"`)
	})
}

func TestRateLimitAppliesToPostOnly(t *testing.T) {
	srv := newTestServer(t, memory.New(), func(o *Options) { o.RateLimitPerMinute = 2 })
	form := url.Values{"date_str": {"2024-01-01"}, "hours": {"1"}, "description": {"x"}}

	assert.Equal(t, http.StatusOK, post(t, srv, "/log_time", form).Code)
	assert.Equal(t, http.StatusOK, post(t, srv, "/log_time", form).Code)
	rr := post(t, srv, "/log_time", form)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(t, srv, "/dashboard").Code)
}

func TestNewServer_RejectsBadTrustedProxy(t *testing.T) {
	store := memory.New()
	_, err := NewServer(Options{
		Entries:        services.NewEntryService(store, nil),
		Invoices:       services.NewInvoiceService(store),
		TrustedProxies: []string{"garbage"},
	})
	assert.Error(t, err)
}

func TestGoldenScenario(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store)

	rr := post(t, srv, "/log_time", url.Values{"date_str": {"2024-01-01"}, "hours": {"5.0"}, "description": {"design"}})
	assert.Contains(t, rr.Body.String(), msgLogged)
	rr = post(t, srv, "/log_time", url.Values{"date_str": {"2024-01-10"}, "hours": {"3.0"}, "description": {"build"}})
	assert.Contains(t, rr.Body.String(), msgLogged)

	rr = post(t, srv, "/generate_invoice", url.Values{"client_name": {"Acme"}, "start_date": {"2024-01-01"}, "end_date": {"2024-01-10"}})
	assert.Contains(t, rr.Body.String(), "Invoice for Acme")
	assert.Contains(t, rr.Body.String(), "<strong>8</strong>")

	rr = post(t, srv, "/generate_invoice", url.Values{"client_name": {"Acme"}, "start_date": {"2024-02-01"}, "end_date": {"2024-02-28"}})
	assert.Contains(t, rr.Body.String(), "No entries in this period.")
	assert.Contains(t, rr.Body.String(), "<strong>0</strong>")

	rr = post(t, srv, "/edit_time", url.Values{"item_id": {"0"}, "date_str": {"2024-01-01"}, "hours": {"7.5"}, "description": {"design"}})
	assert.Contains(t, rr.Body.String(), msgUpdated)
	items, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 7.5, items[0].Hours)
	assert.Equal(t, "build", items[1].Description)

	secondID := items[1].ID
	rr = post(t, srv, "/delete_time", url.Values{"item_id": {"0"}})
	assert.Contains(t, rr.Body.String(), msgDeleted)
	items, err = store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, secondID, items[0].ID)
	assert.Equal(t, "2024-01-10", items[0].Date.String())
}
