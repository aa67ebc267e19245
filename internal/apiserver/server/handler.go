package server

import (
	"net/http"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/apiserver/location"
	"tragic-bricks/internal/apiserver/report"
	"tragic-bricks/internal/apiserver/review"
	"tragic-bricks/internal/apiserver/upload"
	"tragic-bricks/internal/apiserver/user"
	"tragic-bricks/internal/shared/apperr"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查与指标:
//   - GET /health
//   - GET /metrics
//
// 认证 (auth):
//   - POST /auth/register, POST /auth/login, GET /auth/me
//
// 地点 (location):
//   - GET/POST /locations, GET /locations/{id}, POST /locations/{id}（旧版评价表单）
//   - GET /search
//
// 评价 (review):
//   - GET/POST /locations/{id}/reviews
//   - PUT/DELETE /locations/{id}/reviews/{reviewId}
//
// 当前用户 (user):
//   - GET /user/locations, GET/PUT /user/profile, GET /user/reviews
//
// 上传与举报:
//   - POST /upload
//   - POST /reports, GET /reports（管理员）
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	auth.NewHandler(h.store, h.issuer, h.gate, h.log.Named("auth")).RegisterRoutes(mux)
	location.NewHandler(h.ledger, h.gate, h.log.Named("location")).RegisterRoutes(mux)
	review.NewHandler(h.ledger, h.gate, h.log.Named("review")).RegisterRoutes(mux)
	user.NewHandler(h.store, h.ledger, h.gate, h.log.Named("user")).RegisterRoutes(mux)
	upload.NewHandler(h.objects, h.gate, h.uploadMaxSize, h.log.Named("upload")).RegisterRoutes(mux)
	report.NewHandler(h.store, h.gate, h.log.Named("report")).RegisterRoutes(mux)

	// 未匹配的路由返回 JSON 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, h.log, apperr.NotFound("route not found"))
	})

	var handler http.Handler = mux
	if h.metrics != nil {
		handler = h.metrics.MetricsMiddleware(handler)
	}
	handler = corsMiddleware(handler)
	handler = recoverMiddleware(h.log, handler)
	handler = loggingMiddleware(h.log, handler)
	return requestIDMiddleware(handler)
}
