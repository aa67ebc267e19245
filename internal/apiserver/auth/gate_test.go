package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage/memstore"
	"tragic-bricks/pkg/logging"
)

type failingLookup struct{}

func (failingLookup) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return nil, errors.New("mongo down")
}

func protectedMux(g *Gate) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /private", g.Protect(func(w http.ResponseWriter, r *http.Request, id Identity) {
		w.Write([]byte(id.Username))
	}))
	mux.HandleFunc("GET /admin", g.AdminOnly(func(w http.ResponseWriter, r *http.Request, id Identity) {
		w.Write([]byte("ok"))
	}))
	mux.HandleFunc("GET /optional", g.Optional(func(w http.ResponseWriter, r *http.Request, id *Identity) {
		if id == nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(id.ID))
	}))
	return mux
}

func TestGate_Protect(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "usr-1", Email: "alice@example.com", Username: "alice", Role: model.UserRoleUser}))

	iss := testIssuer(t)
	gate := NewGate(iss, store, logging.Discard())
	mux := protectedMux(gate)

	valid, err := iss.Issue(testUser)
	require.NoError(t, err)

	expiredIss := testIssuer(t)
	expiredIss.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	expired, err := expiredIss.Issue(testUser)
	require.NoError(t, err)

	ghost, err := iss.Issue(&model.User{ID: "usr-deleted", Email: "g@example.com", Username: "ghost", Role: model.UserRoleUser})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"lowercase prefix", "bearer " + valid, http.StatusUnauthorized},
		{"no prefix", valid, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"tampered", "Bearer " + valid + "x", http.StatusUnauthorized},
		{"deleted user", "Bearer " + ghost, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())
			} else {
				assert.Equal(t, "alice", w.Body.String())
			}
		})
	}
}

func TestGate_UsesFreshUserRecord(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	// 令牌签发时是 user，之后被提升为 admin
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "usr-1", Email: "alice@example.com", Username: "alice", Role: model.UserRoleAdmin}))

	iss := testIssuer(t)
	mux := protectedMux(NewGate(iss, store, logging.Discard()))
	token, err := iss.Issue(testUser)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGate_AdminOnly(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.CreateUser(context.Background(), &model.User{ID: "usr-1", Email: "alice@example.com", Username: "alice", Role: model.UserRoleUser}))

	iss := testIssuer(t)
	mux := protectedMux(NewGate(iss, store, logging.Discard()))
	token, err := iss.Issue(testUser)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"admin access required"}`, w.Body.String())
}

func TestGate_StoreErrorIsInternal(t *testing.T) {
	iss := testIssuer(t)
	mux := protectedMux(NewGate(iss, failingLookup{}, logging.Discard()))
	token, err := iss.Issue(testUser)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "mongo down")
}

func TestGate_Optional(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.CreateUser(context.Background(), &model.User{ID: "usr-1", Email: "alice@example.com", Username: "alice", Role: model.UserRoleUser}))

	iss := testIssuer(t)
	mux := protectedMux(NewGate(iss, store, logging.Discard()))
	token, err := iss.Issue(testUser)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"none", "", "anonymous"},
		{"invalid", "Bearer junk", "anonymous"},
		{"valid", "Bearer " + token, "usr-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/optional", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}
