// Package location 地点领域 - Handler 单元测试
//
// 测试类型：Unit Test（使用 Mock 隔离领域层）
package location

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/ledger"
	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage/memstore"
	"tragic-bricks/pkg/logging"
)

// ============================================================================
// Mock 实现
// ============================================================================

type mockService struct {
	locations map[string]*model.Location

	lastQuery  ledger.LocationQuery
	lastActor  ledger.Actor
	lastReview ledger.AddReviewCommand

	listErr   error
	createErr error
	searchErr error
}

func newMockService() *mockService {
	return &mockService{locations: make(map[string]*model.Location)}
}

func (m *mockService) CreateLocation(ctx context.Context, actor ledger.Actor, cmd ledger.CreateLocationCommand) (*model.Location, error) {
	m.lastActor = actor
	if m.createErr != nil {
		return nil, m.createErr
	}
	loc := &model.Location{ID: "loc-new", Name: cmd.Name, DiscoveredByID: actor.ID}
	m.locations[loc.ID] = loc
	return loc, nil
}

func (m *mockService) ListLocations(ctx context.Context, q ledger.LocationQuery) ([]*model.Location, error) {
	m.lastQuery = q
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*model.Location{}
	for _, l := range m.locations {
		out = append(out, l)
	}
	return out, nil
}

func (m *mockService) SearchLocations(ctx context.Context, q ledger.LocationQuery) (*ledger.SearchResult, error) {
	m.lastQuery = q
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return &ledger.SearchResult{Locations: []*model.Location{}, Total: 0}, nil
}

func (m *mockService) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	loc, ok := m.locations[id]
	if !ok {
		return nil, apperr.NotFound("location not found")
	}
	return loc, nil
}

func (m *mockService) AddReview(ctx context.Context, actor ledger.Actor, locationID string, cmd ledger.AddReviewCommand) (*model.Review, error) {
	m.lastActor = actor
	m.lastReview = cmd
	return &model.Review{ID: "rev-1", LocationID: locationID, Rating: cmd.Rating, Comment: cmd.Comment}, nil
}

var caller = &auth.Identity{ID: "usr-1", Username: "alice", Email: "alice@example.com", Role: model.UserRoleUser}

func setupMux(svc Service, id *auth.Identity) *http.ServeMux {
	h := NewHandlerWithInterfaces(svc, auth.StaticGuard{ID: id}, logging.Discard())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

// ============================================================================
// 测试用例
// ============================================================================

func TestList_QueryParams(t *testing.T) {
	svc := newMockService()
	mux := setupMux(svc, nil)

	w := do(mux, "GET", "/locations?type=haunted&query=mill&sort=rating", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "haunted", svc.lastQuery.Type)
	assert.Equal(t, "mill", svc.lastQuery.Search)
	assert.Equal(t, "rating", svc.lastQuery.Sort)
	assert.JSONEq(t, `{"locations":[]}`, w.Body.String())

	do(mux, "GET", "/locations?search=manor&query=ignored", "")
	assert.Equal(t, "manor", svc.lastQuery.Search)
}

func TestList_Errors(t *testing.T) {
	svc := newMockService()
	mux := setupMux(svc, nil)

	svc.listErr = apperr.Validation("invalid location type")
	assert.Equal(t, http.StatusBadRequest, do(mux, "GET", "/locations?type=x", "").Code)

	svc.listErr = errors.New("mongo timeout")
	w := do(mux, "GET", "/locations", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestCreate_RequiresAuth(t *testing.T) {
	mux := setupMux(newMockService(), nil)
	w := do(mux, "POST", "/locations", `{"name":"Old Mill"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())
}

func TestCreate_OwnerFromCredential(t *testing.T) {
	svc := newMockService()
	mux := setupMux(svc, caller)

	w := do(mux, "POST", "/locations", `{"name":"Old Mill","discoveredBy":"usr-spoofed"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "usr-1", svc.lastActor.ID)

	var body struct {
		Message  string         `json:"message"`
		Location model.Location `json:"location"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Location created successfully", body.Message)
	assert.Equal(t, "Old Mill", body.Location.Name)
}

func TestGet_NotFound(t *testing.T) {
	mux := setupMux(newMockService(), nil)
	w := do(mux, "GET", "/locations/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"location not found"}`, w.Body.String())
}

func TestLegacyAddReview(t *testing.T) {
	svc := newMockService()
	mux := setupMux(svc, caller)

	w := do(mux, "POST", "/locations/loc-1", `{"rating":4,"comment":"Very creepy at night."}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, svc.lastReview.Rating)

	var body struct {
		Message string       `json:"message"`
		Review  model.Review `json:"review"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Review added successfully", body.Message)
	assert.Equal(t, "loc-1", body.Review.LocationID)

	w = do(mux, "POST", "/locations/loc-1", `{"rating":4.5,"comment":"Very creepy at night."}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch(t *testing.T) {
	svc := newMockService()
	mux := setupMux(svc, nil)

	w := do(mux, "GET", "/search?q=mill&type=abandoned", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mill", svc.lastQuery.Search)
	assert.Equal(t, "abandoned", svc.lastQuery.Type)
	assert.JSONEq(t, `{"locations":[],"total":0}`, w.Body.String())

	svc.searchErr = apperr.Validation("search query or type is required")
	w = do(mux, "GET", "/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestOldMillEndToEnd 使用真实 ledger 与内存存储
func TestOldMillEndToEnd(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "usr-1", Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	lg := ledger.New(store, logging.Discard())
	mux := setupMux(lg, caller)

	w := do(mux, "POST", "/locations", `{
		"name": "Old Mill",
		"description": "A crumbling grain mill on the river bank.",
		"type": "abandoned",
		"address": {"city": "Salem", "state": "MA", "country": "USA"},
		"coordinates": {"latitude": 42.52, "longitude": -70.89},
		"images": ["https://x/a.jpg"]
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Location model.Location `json:"location"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(mux, "GET", "/locations/"+created.Location.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	var got struct {
		Location struct {
			Images        []string          `json:"images"`
			AverageRating float64           `json:"averageRating"`
			DiscoveredBy  map[string]string `json:"discoveredBy"`
		} `json:"location"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"https://x/a.jpg"}, got.Location.Images)
	assert.Equal(t, 0.0, got.Location.AverageRating)
	assert.Equal(t, map[string]string{"id": "usr-1", "username": "alice"}, got.Location.DiscoveredBy)
}
