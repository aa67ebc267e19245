// Package server 路由配置与核心基础设施
//
// 文件组织：
//   - common.go: Handler 定义与健康检查
//   - handler.go: 路由组装
//   - middleware.go: 请求 ID、访问日志、CORS、panic 恢复
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"net/http"
	"time"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/apiserver/upload"
	"tragic-bricks/internal/ledger"
	"tragic-bricks/internal/shared/storage"
	"tragic-bricks/pkg/logging"
)

const healthTimeout = 2 * time.Second

// Deps Handler 依赖
type Deps struct {
	Store   storage.PersistentStore
	Ledger  *ledger.Ledger
	Issuer  *auth.TokenIssuer
	Gate    *auth.Gate
	Objects upload.Uploader
	Metrics *Metrics
	Log     *logging.Logger

	UploadMaxSize int64
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 组装各领域包的路由
//   - 健康检查与指标端点
//   - 公共中间件
type Handler struct {
	store   storage.PersistentStore
	ledger  *ledger.Ledger
	issuer  *auth.TokenIssuer
	gate    *auth.Gate
	objects upload.Uploader
	metrics *Metrics
	log     *logging.Logger

	uploadMaxSize int64
}

// NewHandler 创建 Handler 实例
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logging.Default("api-server")
	}
	return &Handler{
		store:         d.Store,
		ledger:        d.Ledger,
		issuer:        d.Issuer,
		gate:          d.Gate,
		objects:       d.Objects,
		metrics:       d.Metrics,
		log:           log,
		uploadMaxSize: d.UploadMaxSize,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 数据库可达时返回 200 {"status":"ok"}，否则 503。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.WithContext(r.Context()).Warn("health check failed", "error", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}
