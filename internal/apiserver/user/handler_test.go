package user

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
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage/memstore"
	"tragic-bricks/pkg/logging"
)

var alice = &auth.Identity{ID: "usr-a", Username: "alice", Email: "alice@example.com", Role: model.UserRoleUser}

// brokenStore 所有读取都失败
type brokenStore struct{ *memstore.Store }

func (brokenStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return nil, errors.New("mongo down")
}

func setup(t *testing.T, id *auth.Identity) (*http.ServeMux, *memstore.Store, *ledger.Ledger) {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "usr-a", Username: "alice", Email: "alice@example.com", PasswordHash: "secret-hash"}))
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "usr-b", Username: "bob", Email: "bob@example.com", PasswordHash: "secret-hash"}))

	lg := ledger.New(store, logging.Discard())
	h := NewHandlerWithInterfaces(store, lg, auth.StaticGuard{ID: id}, logging.Discard())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, store, lg
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireAuth(t *testing.T) {
	mux, _, _ := setup(t, nil)
	for _, route := range []struct{ method, path string }{
		{"GET", "/user/locations"},
		{"GET", "/user/profile"},
		{"PUT", "/user/profile"},
		{"GET", "/user/reviews"},
	} {
		w := do(mux, route.method, route.path, "{}")
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestGetProfile(t *testing.T) {
	mux, _, _ := setup(t, alice)

	w := do(mux, "GET", "/user/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")

	var resp struct {
		User model.PublicProfile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)
}

func TestGetProfile_StoreError(t *testing.T) {
	store := memstore.New()
	h := NewHandlerWithInterfaces(brokenStore{store}, ledger.New(store, logging.Discard()), auth.StaticGuard{ID: alice}, logging.Discard())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := do(mux, "GET", "/user/profile", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestUpdateProfile(t *testing.T) {
	mux, store, _ := setup(t, alice)

	w := do(mux, "PUT", "/user/profile", `{"username":"alicia","profilePicture":"https://img.example.com/me.png","email":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Profile updated successfully")

	u, err := store.GetUserByID(context.Background(), "usr-a")
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "https://img.example.com/me.png", u.ProfilePicture)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"username taken", `{"username":"bob"}`, http.StatusConflict},
		{"email taken", `{"email":"BOB@example.com"}`, http.StatusConflict},
		{"short username", `{"username":"ab"}`, http.StatusBadRequest},
		{"bad email", `{"email":"nope"}`, http.StatusBadRequest},
		{"relative picture", `{"profilePicture":"/me.png"}`, http.StatusBadRequest},
		{"malformed", `{"username":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, do(mux, "PUT", "/user/profile", tt.body).Code)
		})
	}
}

func f64(v float64) *float64 { return &v }

func TestLocationsAndReviews(t *testing.T) {
	mux, _, lg := setup(t, alice)
	ctx := context.Background()

	cmd := ledger.CreateLocationCommand{
		Name:        "Old Mill",
		Description: "A crumbling grain mill on the river bank.",
		Type:        "abandoned",
		Address:     ledger.AddressInput{City: "Salem", State: "MA", Country: "USA"},
		Coordinates: ledger.CoordinatesInput{Latitude: f64(1), Longitude: f64(2)},
		Images:      []string{"https://x/a.jpg"},
	}
	mine, err := lg.CreateLocation(ctx, ledger.Actor{ID: "usr-a"}, cmd)
	require.NoError(t, err)
	cmd.Type = "haunted"
	_, err = lg.CreateLocation(ctx, ledger.Actor{ID: "usr-a"}, cmd)
	require.NoError(t, err)
	_, err = lg.CreateLocation(ctx, ledger.Actor{ID: "usr-b"}, cmd)
	require.NoError(t, err)

	_, err = lg.AddReview(ctx, ledger.Actor{ID: "usr-a"}, mine.ID, ledger.AddReviewCommand{Rating: 5, Comment: "Best ruin in the county."})
	require.NoError(t, err)

	var locs struct {
		Locations []model.Location `json:"locations"`
	}
	w := do(mux, "GET", "/user/locations", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &locs))
	assert.Len(t, locs.Locations, 2)

	w = do(mux, "GET", "/user/locations?type=abandoned", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &locs))
	assert.Len(t, locs.Locations, 1)

	w = do(mux, "GET", "/user/reviews", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reviews struct {
		Reviews []map[string]any `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	require.Len(t, reviews.Reviews, 1)
	assert.Equal(t, mine.ID, reviews.Reviews[0]["locationId"])
	assert.Equal(t, "Old Mill", reviews.Reviews[0]["locationName"])
	assert.Equal(t, float64(5), reviews.Reviews[0]["rating"])
}
