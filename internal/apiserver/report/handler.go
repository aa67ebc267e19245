// Package report 地点举报 - HTTP 处理
package report

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/validate"
	"tragic-bricks/pkg/logging"
)

const defaultListLimit = 100

// Store 举报处理器需要的存储接口
type Store interface {
	CreateReport(ctx context.Context, report *model.Report) error
	ListReports(ctx context.Context, limit int) ([]*model.Report, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
}

// Handler 举报 HTTP 处理器
type Handler struct {
	store     Store
	gate      auth.Guard
	validator *validate.Validator
	log       *logging.Logger
	now       func() time.Time
}

// NewHandler 创建举报处理器
func NewHandler(store Store, gate auth.Guard, log *logging.Logger) *Handler {
	return &Handler{store: store, gate: gate, validator: validate.New(), log: log, now: time.Now}
}

// RegisterRoutes 注册举报路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /reports", h.gate.Optional(h.Create))
	mux.HandleFunc("GET /reports", h.gate.AdminOnly(h.List))
}

type createReportRequest struct {
	LocationID   string   `json:"locationId"`
	LocationName string   `json:"locationName" validate:"required_without=LocationID"`
	ReportType   string   `json:"reportType" validate:"required,oneof=inaccurate inappropriate dangerous closed other"`
	Description  string   `json:"description" validate:"required,min=20"`
	Images       []string `json:"images" validate:"dive,required,httpurl"`
	ContactEmail string   `json:"contactEmail" validate:"omitempty,email"`
}

func (r *createReportRequest) normalize() {
	r.LocationID = strings.TrimSpace(r.LocationID)
	r.LocationName = strings.TrimSpace(r.LocationName)
	r.ReportType = strings.ToLower(strings.TrimSpace(r.ReportType))
	r.Description = strings.TrimSpace(r.Description)
	r.ContactEmail = strings.ToLower(strings.TrimSpace(r.ContactEmail))
	for i := range r.Images {
		r.Images[i] = strings.TrimSpace(r.Images[i])
	}
}

type reportResponse struct {
	Message string        `json:"message"`
	Report  *model.Report `json:"report"`
}

type listResponse struct {
	Reports []*model.Report `json:"reports"`
}

// Create 提交举报；携带有效凭据时记录举报人
// POST /reports
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	var req createReportRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	req.normalize()
	if err := h.validator.Struct(req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	report := &model.Report{
		ID:           uuid.NewString(),
		LocationName: req.LocationName,
		ReportType:   model.ReportType(req.ReportType),
		Description:  req.Description,
		Images:       req.Images,
		ContactEmail: req.ContactEmail,
		Status:       model.ReportStatusOpen,
		CreatedAt:    h.now().UTC(),
	}
	if id != nil {
		report.ReporterID = id.ID
	}

	// locationId 指向已有地点时，名称以库中为准
	if req.LocationID != "" {
		loc, err := h.store.GetLocation(r.Context(), req.LocationID)
		if err != nil {
			httpx.WriteError(w, r, h.log, apperr.Internal(err))
			return
		}
		if loc == nil {
			httpx.WriteError(w, r, h.log, apperr.NotFound("location not found"))
			return
		}
		report.LocationID = loc.ID
		report.LocationName = loc.Name
	}

	if err := h.store.CreateReport(r.Context(), report); err != nil {
		httpx.WriteError(w, r, h.log, apperr.Internal(err))
		return
	}

	h.log.WithContext(r.Context()).Info("report filed",
		"report_id", report.ID, "type", report.ReportType, "location_id", report.LocationID)
	httpx.WriteJSON(w, http.StatusCreated, reportResponse{Message: "Report submitted successfully", Report: report})
}

// List 管理员查看举报（最新在前）
// GET /reports?limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	limit := httpx.QueryInt(r, "limit", defaultListLimit)
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	reports, err := h.store.ListReports(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.Internal(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Reports: reports})
}
