// Package review 评价领域 - HTTP 处理
package review

import (
	"context"
	"net/http"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/ledger"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/pkg/logging"
)

// Service 定义 review handler 需要的领域接口（用于测试 mock）
type Service interface {
	ListReviews(ctx context.Context, locationID string) ([]*model.Review, error)
	AddReview(ctx context.Context, actor ledger.Actor, locationID string, cmd ledger.AddReviewCommand) (*model.Review, error)
	UpdateReview(ctx context.Context, actor ledger.Actor, locationID, reviewID string, cmd ledger.UpdateReviewCommand) (*model.Review, error)
	DeleteReview(ctx context.Context, actor ledger.Actor, locationID, reviewID string) error
}

var _ Service = (*ledger.Ledger)(nil)

// Handler 评价 HTTP 处理器
type Handler struct {
	svc  Service
	gate auth.Guard
	log  *logging.Logger
}

// NewHandler 创建评价处理器
func NewHandler(lg *ledger.Ledger, gate *auth.Gate, log *logging.Logger) *Handler {
	return &Handler{svc: lg, gate: gate, log: log}
}

// NewHandlerWithInterfaces 使用接口创建处理器（用于测试）
func NewHandlerWithInterfaces(svc Service, gate auth.Guard, log *logging.Logger) *Handler {
	return &Handler{svc: svc, gate: gate, log: log}
}

// RegisterRoutes 注册评价相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /locations/{id}/reviews", h.List)
	mux.HandleFunc("POST /locations/{id}/reviews", h.gate.Protect(h.Create))
	mux.HandleFunc("PUT /locations/{id}/reviews/{reviewId}", h.gate.Protect(h.Update))
	mux.HandleFunc("DELETE /locations/{id}/reviews/{reviewId}", h.gate.Protect(h.Delete))
}

type listResponse struct {
	Reviews []*model.Review `json:"reviews"`
}

type reviewResponse struct {
	Message string        `json:"message,omitempty"`
	Review  *model.Review `json:"review"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func actorOf(id auth.Identity) ledger.Actor {
	return ledger.Actor{ID: id.ID, Role: id.Role}
}

// List 地点的评价
// GET /locations/{id}/reviews
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListReviews(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Reviews: reviews})
}

// Create 新增评价
// POST /locations/{id}/reviews
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id auth.Identity) {
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
	httpx.WriteJSON(w, http.StatusCreated, reviewResponse{Review: review})
}

// Update 修改评价（仅作者）
// PUT /locations/{id}/reviews/{reviewId}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var cmd ledger.UpdateReviewCommand
	if err := httpx.DecodeJSON(w, r, &cmd); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	review, err := h.svc.UpdateReview(r.Context(), actorOf(id), r.PathValue("id"), r.PathValue("reviewId"), cmd)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviewResponse{Message: "Review updated successfully", Review: review})
}

// Delete 删除评价（作者或管理员）
// DELETE /locations/{id}/reviews/{reviewId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if err := h.svc.DeleteReview(r.Context(), actorOf(id), r.PathValue("id"), r.PathValue("reviewId")); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Review deleted successfully"})
}
