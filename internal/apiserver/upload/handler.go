// Package upload 图片上传中转 - HTTP 处理
package upload

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tragic-bricks/internal/apiserver/auth"
	"tragic-bricks/internal/apiserver/httpx"
	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/pkg/logging"
)

const (
	// DefaultMaxSize 单个文件上限
	DefaultMaxSize int64 = 10 << 20
	// KeyPrefix 对象键前缀
	KeyPrefix = "tragic-bricks/"

	formField = "file"
	// multipart 头部与边界的额外开销
	formOverhead = 1 << 20
)

// allowedTypes 允许的声明类型 → 扩展名
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var (
	errUnsupportedType = apperr.Validation("upload failed: unsupported content type")
	errNoFile          = apperr.Validation("upload failed: no file provided")
	errTooLarge        = apperr.Validation("upload failed: file too large")
)

// Uploader 对象存储接口（objstore.Client 实现）
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
}

// Handler 上传 HTTP 处理器
type Handler struct {
	store   Uploader
	gate    auth.Guard
	maxSize int64
	log     *logging.Logger
	newKey  func(ext string) string
}

// NewHandler 创建上传处理器；maxSize<=0 时使用 DefaultMaxSize
func NewHandler(store Uploader, gate auth.Guard, maxSize int64, log *logging.Logger) *Handler {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Handler{
		store:   store,
		gate:    gate,
		maxSize: maxSize,
		log:     log,
		newKey:  func(ext string) string { return KeyPrefix + uuid.NewString() + ext },
	}
}

// RegisterRoutes 注册上传路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload", h.gate.Protect(h.Upload))
}

type uploadResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Upload 接收 multipart 字段 file，转存到对象存储
// POST /upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+formOverhead)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpx.WriteError(w, r, h.log, errTooLarge)
			return
		}
		httpx.WriteError(w, r, h.log, apperr.Wrap(err, apperr.KindValidation, "upload failed: invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formField)
	if err != nil {
		httpx.WriteError(w, r, h.log, errNoFile)
		return
	}
	defer file.Close()

	contentType, ext, ok := declaredType(header.Header.Get("Content-Type"))
	if !ok {
		httpx.WriteError(w, r, h.log, errUnsupportedType)
		return
	}
	if header.Size > h.maxSize {
		httpx.WriteError(w, r, h.log, errTooLarge)
		return
	}

	key := h.newKey(ext)
	url, err := h.store.Upload(r.Context(), key, file, header.Size, contentType)
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.Wrap(err, apperr.KindInternal, "upload failed"))
		return
	}

	h.log.WithContext(r.Context()).Info("image uploaded", "key", key, "size", header.Size, "user_id", id.ID)
	httpx.WriteJSON(w, http.StatusOK, uploadResponse{URL: url, PublicID: key})
}

// declaredType 解析声明的 Content-Type，返回规范类型与扩展名
func declaredType(raw string) (string, string, bool) {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", "", false
	}
	mediaType = strings.ToLower(mediaType)
	ext, ok := allowedTypes[mediaType]
	return mediaType, ext, ok
}
