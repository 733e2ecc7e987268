package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebill/internal/core"
	"timebill/internal/entries/memory"
)

// brokenStore fails every operation like an unreachable database.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Append(context.Context, core.Entry) (core.Entry, int, error) {
	return core.Entry{}, 0, errStoreDown
}
func (brokenStore) Replace(context.Context, int, core.Entry) (core.Entry, error) {
	return core.Entry{}, errStoreDown
}
func (brokenStore) Remove(context.Context, int) (core.Entry, error) {
	return core.Entry{}, errStoreDown
}
func (brokenStore) All(context.Context) ([]core.Entry, error) { return nil, errStoreDown }
func (brokenStore) Len(context.Context) (int, error)         { return 0, errStoreDown }

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	d1, err := core.ParseDate("2024-01-01")
	require.NoError(t, err)
	d2, err := core.ParseDate("2024-01-10")
	require.NoError(t, err)
	return memory.New(
		core.Entry{Date: d1, Hours: 5, Description: "design"},
		core.Entry{Date: d2, Hours: 3, Description: "build"},
	)
}

func TestLogTime(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		want   string
		stored int
	}{
		{"success", url.Values{"date_str": {"2024-03-05"}, "hours": {"2.25"}, "description": {"review"}}, msgLogged, 1},
		{"negative hours accepted", url.Values{"date_str": {"2024-03-05"}, "hours": {"-1"}, "description": {""}}, msgLogged, 1},
		{"bad date format", url.Values{"date_str": {"03/05/2024"}, "hours": {"1"}, "description": {"x"}}, msgInvalidDate, 0},
		{"impossible date", url.Values{"date_str": {"2024-02-30"}, "hours": {"1"}, "description": {"x"}}, msgInvalidDate, 0},
		{"bad hours", url.Values{"date_str": {"2024-03-05"}, "hours": {"lots"}, "description": {"x"}}, msgInvalidHours, 0},
		{"missing date", url.Values{"hours": {"1"}, "description": {"x"}}, "Missing required field: date_str.", 0},
		{"blank hours", url.Values{"date_str": {"2024-03-05"}, "hours": {"  "}}, "Missing required field: hours.", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			srv := newTestServer(t, store)

			rr := post(t, srv, "/log_time", tt.form)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.Contains(t, rr.Body.String(), `action="/log_time"`)

			n, err := store.Len(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.stored, n)
		})
	}
}

func TestLogTime_SanitizesDescription(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store)

	post(t, srv, "/log_time", url.Values{"date_str": {"2024-03-05"}, "hours": {"1"}, "description": {"  call\x00 with\x07 client "}})

	items, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "call with client", items[0].Description)
}

func TestDashboardListsEntriesInOrder(t *testing.T) {
	srv := newTestServer(t, seeded(t))

	body := get(t, srv, "/dashboard").Body.String()
	first := strings.Index(body, `value="2024-01-01"`)
	second := strings.Index(body, `value="2024-01-10"`)
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.Contains(t, body, `name="item_id" value="1"`)
}

func TestEditTime(t *testing.T) {
	tests := []struct {
		name      string
		form      url.Values
		want      string
		wantHours float64
	}{
		{"success", url.Values{"item_id": {"1"}, "date_str": {"2024-01-11"}, "hours": {"4"}, "description": {"fix"}}, msgUpdated, 4},
		{"index out of range", url.Values{"item_id": {"2"}, "date_str": {"2024-01-11"}, "hours": {"4"}}, msgInvalidIndex, 3},
		{"negative index", url.Values{"item_id": {"-1"}, "date_str": {"2024-01-11"}, "hours": {"4"}}, msgInvalidIndex, 3},
		{"non-integer index", url.Values{"item_id": {"one"}, "date_str": {"2024-01-11"}, "hours": {"4"}}, msgInvalidIndex, 3},
		{"invalid index wins over invalid date", url.Values{"item_id": {"9"}, "date_str": {"nope"}, "hours": {"4"}}, msgInvalidIndex, 3},
		{"bad date", url.Values{"item_id": {"1"}, "date_str": {"2024-13-01"}, "hours": {"4"}}, msgInvalidDate, 3},
		{"bad hours", url.Values{"item_id": {"1"}, "date_str": {"2024-01-11"}, "hours": {"x"}}, msgInvalidHours, 3},
		{"missing item id", url.Values{"date_str": {"2024-01-11"}, "hours": {"4"}}, "Missing required field: item_id.", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seeded(t)
			before, _ := store.All(context.Background())
			srv := newTestServer(t, store)

			rr := post(t, srv, "/edit_time", tt.form)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.Contains(t, rr.Body.String(), `value="2024-01-01"`, "dashboard still lists entries")

			after, _ := store.All(context.Background())
			require.Len(t, after, 2)
			assert.Equal(t, before[0], after[0])
			assert.Equal(t, tt.wantHours, after[1].Hours)
			assert.Equal(t, before[1].ID, after[1].ID)
		})
	}
}

var hoursInput = regexp.MustCompile(`name="hours" value="([^"]*)"`)

func TestEditTime_ResubmittingPrefilledRowKeepsHours(t *testing.T) {
	d, err := core.ParseDate("2024-01-01")
	require.NoError(t, err)
	store := memory.New(core.Entry{Date: d, Hours: 1.234, Description: "draft"})
	srv := newTestServer(t, store)

	m := hoursInput.FindStringSubmatch(get(t, srv, "/dashboard").Body.String())
	require.Len(t, m, 2)
	assert.Equal(t, "1.234", m[1])

	rr := post(t, srv, "/edit_time", url.Values{
		"item_id":     {"0"},
		"date_str":    {"2024-01-01"},
		"hours":       {m[1]},
		"description": {"final"},
	})
	assert.Contains(t, rr.Body.String(), msgUpdated)

	after, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, 1.234, after[0].Hours)
	assert.Equal(t, "final", after[0].Description)
}

func TestDeleteTime(t *testing.T) {
	tests := []struct {
		name   string
		itemID string
		want   string
		left   int
	}{
		{"delete first", "0", msgDeleted, 1},
		{"delete last", "1", msgDeleted, 1},
		{"out of range", "2", msgInvalidIndex, 2},
		{"negative", "-1", msgInvalidIndex, 2},
		{"not a number", "x", msgInvalidIndex, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seeded(t)
			srv := newTestServer(t, store)

			rr := post(t, srv, "/delete_time", url.Values{"item_id": {tt.itemID}})
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)

			n, _ := store.Len(context.Background())
			assert.Equal(t, tt.left, n)
		})
	}
}

func TestGenerateInvoice(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		wants []string
	}{
		{
			name:  "inclusive bounds",
			form:  url.Values{"client_name": {"Acme"}, "start_date": {"2024-01-01"}, "end_date": {"2024-01-01"}},
			wants: []string{"Invoice for Acme", "Period: 2024-01-01 to 2024-01-01", "<strong>5</strong>", "design"},
		},
		{
			name:  "inverted range is empty",
			form:  url.Values{"client_name": {"Acme"}, "start_date": {"2024-01-10"}, "end_date": {"2024-01-01"}},
			wants: []string{"No entries in this period.", "<strong>0</strong>"},
		},
		{
			name:  "empty client name allowed",
			form:  url.Values{"client_name": {""}, "start_date": {"2024-01-01"}, "end_date": {"2024-12-31"}},
			wants: []string{"<strong>8</strong>"},
		},
		{
			name:  "bad start date",
			form:  url.Values{"client_name": {"Acme"}, "start_date": {"01-01-2024"}, "end_date": {"2024-01-10"}},
			wants: []string{msgInvalidDate},
		},
		{
			name:  "bad end date",
			form:  url.Values{"client_name": {"Acme"}, "start_date": {"2024-01-01"}, "end_date": {"soon"}},
			wants: []string{msgInvalidDate},
		},
		{
			name:  "missing end date",
			form:  url.Values{"client_name": {"Acme"}, "start_date": {"2024-01-01"}},
			wants: []string{"Missing required field: end_date."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, seeded(t))
			rr := post(t, srv, "/generate_invoice", tt.form)
			assert.Equal(t, http.StatusOK, rr.Code)
			for _, want := range tt.wants {
				assert.Contains(t, rr.Body.String(), want)
			}
		})
	}
}

// tbody returns the entry table of a rendered dashboard.
func tbody(t *testing.T, body string) string {
	t.Helper()
	start := strings.Index(body, "<tbody>")
	end := strings.Index(body, "</tbody>")
	require.True(t, start >= 0 && end > start, "dashboard has an entry table")
	return body[start:end]
}

func TestGenerateInvoice_InvalidDateLeavesEntriesUntouched(t *testing.T) {
	store := seeded(t)
	srv := newTestServer(t, store)

	before, err := store.All(context.Background())
	require.NoError(t, err)
	rowsBefore := tbody(t, get(t, srv, "/dashboard").Body.String())

	for _, form := range []url.Values{
		{"client_name": {"Acme"}, "start_date": {"2024/01/01"}, "end_date": {"2024-01-31"}},
		{"client_name": {"Acme"}, "start_date": {"2024-01-01"}, "end_date": {"2024-02-30"}},
	} {
		rr := post(t, srv, "/generate_invoice", form)
		assert.Contains(t, rr.Body.String(), msgInvalidDate)
	}

	after, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, rowsBefore, tbody(t, get(t, srv, "/dashboard").Body.String()))
}

func TestGenerateInvoice_EscapesClientName(t *testing.T) {
	srv := newTestServer(t, seeded(t))
	rr := post(t, srv, "/generate_invoice", url.Values{"client_name": {"<b>Acme</b>"}, "start_date": {"2024-01-01"}, "end_date": {"2024-01-31"}})
	assert.NotContains(t, rr.Body.String(), "<b>Acme</b>")
	assert.Contains(t, rr.Body.String(), "&lt;b&gt;Acme&lt;/b&gt;")
}

func TestStoreFailureRendersGenericMessage(t *testing.T) {
	srv := newTestServer(t, brokenStore{})

	rr := post(t, srv, "/log_time", url.Values{"date_str": {"2024-01-01"}, "hours": {"1"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), msgUnexpected)

	rr = get(t, srv, "/dashboard")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), msgUnexpected)

	rr = post(t, srv, "/generate_invoice", url.Values{"start_date": {"2024-01-01"}, "end_date": {"2024-01-31"}})
	assert.Contains(t, rr.Body.String(), msgUnexpected)
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := post(t, srv, "/log_time", nil)
	assert.Equal(t, http.StatusOK, rr.Code, "empty body is a form with missing fields")

	req := httptest.NewRequest(http.MethodPost, "/log_time", strings.NewReader("date_str=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
