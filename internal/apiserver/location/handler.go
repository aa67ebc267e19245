// Package location 地点领域 - HTTP 处理
package location

import (
	"context"
	"net/http"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/ledger"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/pkg/logging"
)

// Service 定义 location handler 需要的领域接口（用于测试 mock）
type Service interface {
	CreateLocation(ctx context.Context, actor ledger.Actor, cmd ledger.CreateLocationCommand) (*model.Location, error)
	ListLocations(ctx context.Context, q ledger.LocationQuery) ([]*model.Location, error)
	SearchLocations(ctx context.Context, q ledger.LocationQuery) (*ledger.SearchResult, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	AddReview(ctx context.Context, actor ledger.Actor, locationID string, cmd ledger.AddReviewCommand) (*model.Review, error)
}

var _ Service = (*ledger.Ledger)(nil)

// Handler 地点 HTTP 处理器
type Handler struct {
	svc  Service
	gate auth.Guard
	log  *logging.Logger
}

// NewHandler 创建地点处理器
func NewHandler(lg *ledger.Ledger, gate *auth.Gate, log *logging.Logger) *Handler {
	return &Handler{svc: lg, gate: gate, log: log}
}

// NewHandlerWithInterfaces 使用接口创建处理器（用于测试）
func NewHandlerWithInterfaces(svc Service, gate auth.Guard, log *logging.Logger) *Handler {
	return &Handler{svc: svc, gate: gate, log: log}
}

// RegisterRoutes 注册地点相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /locations", h.List)
	mux.HandleFunc("POST /locations", h.gate.Protect(h.Create))
	mux.HandleFunc("GET /locations/{id}", h.Get)
	mux.HandleFunc("POST /locations/{id}", h.gate.Protect(h.LegacyAddReview))
	mux.HandleFunc("GET /search", h.Search)
}

type listResponse struct {
	Locations []*model.Location `json:"locations"`
}

type locationResponse struct {
	Message  string          `json:"message,omitempty"`
	Location *model.Location `json:"location"`
}

type reviewResponse struct {
	Message string        `json:"message"`
	Review  *model.Review `json:"review"`
}

func actorOf(id auth.Identity) ledger.Actor {
	return ledger.Actor{ID: id.ID, Role: id.Role}
}

// List 列出地点
// GET /locations?type=&search=|query=&sort=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("search")
	if search == "" {
		search = q.Get("query")
	}

	locs, err := h.svc.ListLocations(r.Context(), ledger.LocationQuery{
		Type:   q.Get("type"),
		Search: search,
		Sort:   q.Get("sort"),
		Limit:  httpx.QueryInt(r, "limit", 0),
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Locations: locs})
}

// Create 新建地点
// POST /locations
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var cmd ledger.CreateLocationCommand
	if err := httpx.DecodeJSON(w, r, &cmd); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	loc, err := h.svc.CreateLocation(r.Context(), actorOf(id), cmd)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, locationResponse{
		Message:  "Location created successfully",
		Location: loc,
	})
}

// Get 读取单个地点
// GET /locations/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	loc, err := h.svc.GetLocation(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, locationResponse{Location: loc})
}

// LegacyAddReview 旧版评价表单，与 POST /locations/{id}/reviews 走同一路径
// POST /locations/{id}
func (h *Handler) LegacyAddReview(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var cmd ledger.AddReviewCommand
	if err := httpx.DecodeJSON(w, r, &cmd); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	review, err := h.svc.AddReview(r.Context(), actorOf(id), r.PathValue("id"), cmd)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviewResponse{Message: "Review added successfully", Review: review})
}

// Search 搜索地点，最多 20 条
// GET /search?q=&type=&sort=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.SearchLocations(r.Context(), ledger.LocationQuery{
		Search: q.Get("q"),
		Type:   q.Get("type"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
