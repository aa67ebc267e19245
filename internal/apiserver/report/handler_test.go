package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage/memstore"
	"tragic-bricks/pkg/logging"
)

var (
	member = &auth.Identity{ID: "usr-1", Username: "visitor", Role: model.UserRoleUser}
	admin  = &auth.Identity{ID: "usr-admin", Username: "keeper", Role: model.UserRoleAdmin}
)

const validDescription = "The gate is chained shut and signs say demolition is scheduled."

func newMux(store Store, id *auth.Identity) *http.ServeMux {
	h := NewHandler(store, auth.StaticGuard{ID: id}, logging.Discard())
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func post(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestCreate_Anonymous(t *testing.T) {
	store := memstore.New()
	mux := newMux(store, nil)

	w := post(mux, `{"locationName":"Old Mill","reportType":"Closed","description":"`+validDescription+`","contactEmail":" Me@Example.com "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp reportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Report submitted successfully", resp.Message)
	assert.Equal(t, model.ReportTypeClosed, resp.Report.ReportType)
	assert.Equal(t, model.ReportStatusOpen, resp.Report.Status)
	assert.Equal(t, "me@example.com", resp.Report.ContactEmail)
	assert.Empty(t, resp.Report.ReporterID)

	saved, err := store.ListReports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, resp.Report.ID, saved[0].ID)
}

func TestCreate_AttachesReporterAndLocation(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.CreateLocation(context.Background(), &model.Location{
		ID: "loc-1", Name: "Old Mill", Type: model.LocationTypeAbandoned, DiscoveredByID: "usr-2",
	}))
	mux := newMux(store, member)

	w := post(mux, `{"locationId":"loc-1","reportType":"dangerous","description":"`+validDescription+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp reportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "usr-1", resp.Report.ReporterID)
	assert.Equal(t, "loc-1", resp.Report.LocationID)
	assert.Equal(t, "Old Mill", resp.Report.LocationName)

	w = post(mux, `{"locationId":"missing","reportType":"dangerous","description":"`+validDescription+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreate_Validation(t *testing.T) {
	mux := newMux(memstore.New(), nil)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"no location", `{"reportType":"other","description":"` + validDescription + `"}`, "locationName"},
		{"unknown type", `{"locationName":"Mill","reportType":"spooky","description":"` + validDescription + `"}`, "reportType"},
		{"short description", `{"locationName":"Mill","reportType":"other","description":"too short"}`, "description"},
		{"bad email", `{"locationName":"Mill","reportType":"other","description":"` + validDescription + `","contactEmail":"nope"}`, "contactEmail"},
		{"bad image", `{"locationName":"Mill","reportType":"other","description":"` + validDescription + `","images":["ftp://x/y.png"]}`, "images[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(mux, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			var resp struct {
				Fields map[string]string `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Fields, tt.field)
		})
	}
}

func TestList_AdminOnly(t *testing.T) {
	store := memstore.New()
	for _, name := range []string{"First", "Second"} {
		w := post(newMux(store, nil), `{"locationName":"`+name+`","reportType":"other","description":"`+validDescription+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	get := func(id *auth.Identity) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		newMux(store, id).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports", nil))
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, get(nil).Code)
	assert.Equal(t, http.StatusForbidden, get(member).Code)

	w := get(admin)
	require.Equal(t, http.StatusOK, w.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Reports, 2)
}

// failingStore 写入失败
type failingStore struct{ *memstore.Store }

func (failingStore) CreateReport(ctx context.Context, r *model.Report) error {
	return errors.New("disk full")
}

func TestCreate_StoreError(t *testing.T) {
	mux := newMux(failingStore{memstore.New()}, nil)
	w := post(mux, `{"locationName":"Mill","reportType":"other","description":"`+validDescription+`"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
