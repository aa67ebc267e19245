// Package user 当前用户 - HTTP 处理（资料、提交的地点、写过的评价）
package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/ledger"
	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
	"tragic-bricks/internal/shared/validate"
	"tragic-bricks/pkg/logging"
)

// ProfileStore 用户资料存储接口
type ProfileStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, user *model.User) error
}

// Service 用户相关的领域查询
type Service interface {
	ListLocations(ctx context.Context, q ledger.LocationQuery) ([]*model.Location, error)
	ListUserReviews(ctx context.Context, actor ledger.Actor) ([]*ledger.UserReview, error)
}

var _ Service = (*ledger.Ledger)(nil)

// Handler 用户 HTTP 处理器
type Handler struct {
	store     ProfileStore
	svc       Service
	gate      auth.Guard
	validator *validate.Validator
	log       *logging.Logger
}

// NewHandler 创建用户处理器
func NewHandler(store storage.UserStore, lg *ledger.Ledger, gate *auth.Gate, log *logging.Logger) *Handler {
	return NewHandlerWithInterfaces(store, lg, gate, log)
}

// NewHandlerWithInterfaces 使用接口创建处理器（用于测试）
func NewHandlerWithInterfaces(store ProfileStore, svc Service, gate auth.Guard, log *logging.Logger) *Handler {
	return &Handler{store: store, svc: svc, gate: gate, validator: validate.New(), log: log}
}

// RegisterRoutes 注册用户相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /user/locations", h.gate.Protect(h.Locations))
	mux.HandleFunc("GET /user/profile", h.gate.Protect(h.GetProfile))
	mux.HandleFunc("PUT /user/profile", h.gate.Protect(h.UpdateProfile))
	mux.HandleFunc("GET /user/reviews", h.gate.Protect(h.Reviews))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

// updateProfileRequest 空字段表示不修改
type updateProfileRequest struct {
	Username       *string `json:"username" validate:"omitempty,min=3,max=30"`
	Email          *string `json:"email" validate:"omitempty,email"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,httpurl"`
}

func (r *updateProfileRequest) normalize() {
	r.Username = trimmedOrNil(r.Username)
	r.Email = trimmedOrNil(r.Email)
	if r.Email != nil {
		lower := strings.ToLower(*r.Email)
		r.Email = &lower
	}
	r.ProfilePicture = trimmedOrNil(r.ProfilePicture)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

type profileResponse struct {
	Message string               `json:"message,omitempty"`
	User    *model.PublicProfile `json:"user"`
}

type locationsResponse struct {
	Locations []*model.Location `json:"locations"`
}

type reviewsResponse struct {
	Reviews []*ledger.UserReview `json:"reviews"`
}

// ============================================================================
// Handlers
// ============================================================================

// Locations 调用者提交的地点
// GET /user/locations?type=
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	locs, err := h.svc.ListLocations(r.Context(), ledger.LocationQuery{
		Type:         r.URL.Query().Get("type"),
		DiscoveredBy: id.ID,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, locationsResponse{Locations: locs})
}

// Reviews 调用者写过的评价
// GET /user/reviews
func (h *Handler) Reviews(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	reviews, err := h.svc.ListUserReviews(r.Context(), ledger.Actor{ID: id.ID, Role: id.Role})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviewsResponse{Reviews: reviews})
}

// GetProfile 调用者资料
// GET /user/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	user, err := h.loadUser(r.Context(), id.ID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profileResponse{User: user.Profile()})
}

// UpdateProfile 修改用户名、邮箱、头像
// PUT /user/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req updateProfileRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	req.normalize()
	if err := h.validator.Struct(req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	user, err := h.updateProfile(r.Context(), id.ID, req)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	h.log.WithContext(r.Context()).Info("profile updated", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, profileResponse{Message: "Profile updated successfully", User: user.Profile()})
}

func (h *Handler) updateProfile(ctx context.Context, userID string, req updateProfileRequest) (*model.User, error) {
	user, err := h.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		taken, err := h.store.GetUserByUsername(ctx, *req.Username)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken != nil {
			return nil, apperr.Conflict("username already taken")
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		taken, err := h.store.GetUserByEmail(ctx, *req.Email)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken != nil {
			return nil, apperr.Conflict("email already registered")
		}
		user.Email = *req.Email
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = *req.ProfilePicture
	}

	if err := h.store.UpdateUserProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, apperr.Conflict("email or username already registered")
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NotFound("user not found")
		default:
			return nil, apperr.Internal(err)
		}
	}
	return user, nil
}

func (h *Handler) loadUser(ctx context.Context, id string) (*model.User, error) {
	user, err := h.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}
