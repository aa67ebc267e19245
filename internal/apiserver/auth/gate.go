package auth

import (
	"context"
	"net/http"
	"strings"

	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/pkg/logging"
)

const bearerPrefix = "Bearer "

// errAuthRequired 所有鉴权失败对外的统一响应
var errAuthRequired = apperr.Unauthenticated("authentication required")

// UserLookup 鉴权门需要的用户查询
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// HandlerFunc 接收已鉴权身份的处理函数
type HandlerFunc func(w http.ResponseWriter, r *http.Request, id Identity)

// OptionalHandlerFunc 身份可能为空的处理函数
type OptionalHandlerFunc func(w http.ResponseWriter, r *http.Request, id *Identity)

// Gate 请求鉴权门
//
// 每个受保护请求：提取 Bearer 令牌 -> 校验签名与过期 -> 按 sub 重新读取用户。
// 任一步失败都返回同样的 401，具体原因只写日志。
type Gate struct {
	issuer *TokenIssuer
	users  UserLookup
	log    *logging.Logger
}

// NewGate 创建鉴权门
func NewGate(issuer *TokenIssuer, users UserLookup, log *logging.Logger) *Gate {
	return &Gate{issuer: issuer, users: users, log: log}
}

// Authenticate 解析请求凭证并返回身份
//
// 凭证问题返回 Authentication 错误；用户库读取失败返回 Internal 错误。
func (g *Gate) Authenticate(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return Identity{}, g.reject(r, "missing bearer credential", nil)
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return Identity{}, g.reject(r, "empty bearer credential", nil)
	}

	claims, err := g.issuer.Parse(raw)
	if err != nil {
		return Identity{}, g.reject(r, "token rejected", err)
	}

	user, err := g.users.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		return Identity{}, apperr.Internal(err)
	}
	if user == nil {
		return Identity{}, g.reject(r, "token subject no longer exists", nil)
	}
	return identityOf(user), nil
}

func (g *Gate) reject(r *http.Request, reason string, cause error) error {
	g.log.WithContext(r.Context()).WithError(cause).Debug("authentication failed",
		"reason", reason,
		"path", r.URL.Path,
	)
	return errAuthRequired
}

// Protect 要求有效凭证
func (g *Gate) Protect(next HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(r)
		if err != nil {
			httpx.WriteError(w, r, g.log, err)
			return
		}
		r = r.WithContext(logging.WithUserID(r.Context(), id.ID))
		next(w, r, id)
	}
}

// Optional 凭证可选；无效凭证按匿名处理
func (g *Gate) Optional(next OptionalHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next(w, r, nil)
			return
		}
		id, err := g.Authenticate(r)
		if err != nil {
			if apperr.Is(err, apperr.KindAuthentication) {
				next(w, r, nil)
				return
			}
			httpx.WriteError(w, r, g.log, err)
			return
		}
		r = r.WithContext(logging.WithUserID(r.Context(), id.ID))
		next(w, r, &id)
	}
}

// AdminOnly 要求管理员角色
func (g *Gate) AdminOnly(next HandlerFunc) http.HandlerFunc {
	return g.Protect(func(w http.ResponseWriter, r *http.Request, id Identity) {
		if !id.IsAdmin() {
			httpx.WriteError(w, r, g.log, apperr.Forbidden("admin access required"))
			return
		}
		next(w, r, id)
	})
}

// Guard 路由处理器使用的鉴权包装
type Guard interface {
	Protect(next HandlerFunc) http.HandlerFunc
	Optional(next OptionalHandlerFunc) http.HandlerFunc
	AdminOnly(next HandlerFunc) http.HandlerFunc
}

var _ Guard = (*Gate)(nil)
