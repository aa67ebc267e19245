package auth

import (
	"net/http"

	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/shared/apperr"
)

// StaticGuard 返回固定身份的 Guard（用于 handler 测试）
// id 为 nil 时所有受保护路由返回 401
type StaticGuard struct {
	ID *Identity
}

var _ Guard = StaticGuard{}

func (g StaticGuard) Protect(next HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.ID == nil {
			httpx.WriteError(w, r, nil, errAuthRequired)
			return
		}
		next(w, r, *g.ID)
	}
}

func (g StaticGuard) Optional(next OptionalHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r, g.ID)
	}
}

func (g StaticGuard) AdminOnly(next HandlerFunc) http.HandlerFunc {
	return g.Protect(func(w http.ResponseWriter, r *http.Request, id Identity) {
		if !id.IsAdmin() {
			httpx.WriteError(w, r, nil, apperr.Forbidden("admin access required"))
			return
		}
		next(w, r, id)
	})
}
