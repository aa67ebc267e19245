package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
	"tragic-bricks/internal/shared/validate"
	"tragic-bricks/pkg/logging"
)

// UserStore 用户存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store     UserStore
	issuer    *TokenIssuer
	gate      Guard
	validator *validate.Validator
	log       *logging.Logger
}

// NewHandler 创建认证处理器
func NewHandler(store UserStore, issuer *TokenIssuer, gate Guard, log *logging.Logger) *Handler {
	return &Handler{
		store:     store,
		issuer:    issuer,
		gate:      gate,
		validator: validate.New(),
		log:       log,
	}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/me", h.gate.Protect(h.Me))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (r *registerRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string               `json:"token"`
	User  *model.PublicProfile `json:"user"`
}

type userResponse struct {
	User *model.PublicProfile `json:"user"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	req.normalize()
	if err := h.validator.Struct(req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	user, err := h.register(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.Internal(err))
		return
	}

	h.log.WithContext(r.Context()).Info("user registered", "user_id", user.ID, "username", user.Username)
	httpx.WriteJSON(w, http.StatusCreated, authResponse{Token: token, User: user.Profile()})
}

func (h *Handler) register(ctx context.Context, req registerRequest) (*model.User, error) {
	existing, err := h.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}
	existing, err = h.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict("username already taken")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         model.UserRoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		// 并发注册：唯一索引兜底
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict("email or username already registered")
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

// Login 用户登录
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.Internal(err))
		return
	}
	if user == nil || !CheckPassword(req.Password, user.PasswordHash) {
		httpx.WriteError(w, r, h.log, apperr.Unauthenticated("invalid credentials"))
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.Internal(err))
		return
	}

	h.log.WithContext(r.Context()).Info("user logged in", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, authResponse{Token: token, User: user.Profile()})
}

// Me 获取当前用户信息
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, id Identity) {
	user, err := h.store.GetUserByID(r.Context(), id.ID)
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.Internal(err))
		return
	}
	if user == nil {
		httpx.WriteError(w, r, h.log, apperr.NotFound("user not found"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse{User: user.Profile()})
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// EnsureAdminUser 确保管理员用户存在（启动时调用）
// 未配置 adminEmail/adminPassword 时跳过
func EnsureAdminUser(ctx context.Context, store UserStore, log *logging.Logger, adminEmail, adminPassword string) error {
	if adminEmail == "" || adminPassword == "" {
		return nil
	}
	adminEmail = strings.ToLower(strings.TrimSpace(adminEmail))

	existing, err := store.GetUserByEmail(ctx, adminEmail)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		if !existing.IsAdmin() {
			log.Warn("bootstrap admin email belongs to a non-admin user", "email", adminEmail, "user_id", existing.ID)
		}
		return nil
	}

	username, err := adminUsername(ctx, store, adminEmail)
	if err != nil {
		return err
	}

	hash, err := HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        adminEmail,
		Username:     username,
		PasswordHash: hash,
		Role:         model.UserRoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info("created admin user", "email", adminEmail, "username", username, "user_id", user.ID)
	return nil
}

const maxAdminUsernameAttempts = 100

// adminUsername 取邮箱本地部分作为用户名，已被占用时追加数字后缀
func adminUsername(ctx context.Context, store UserStore, email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	if len(base) < 3 {
		base = "admin"
	}
	if len(base) > 26 {
		base = base[:26]
	}

	candidate := base
	for i := 2; i <= maxAdminUsernameAttempts; i++ {
		existing, err := store.GetUserByUsername(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check admin username: %w", err)
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free username for admin %s", email)
}
