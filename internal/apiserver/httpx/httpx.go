// Package httpx HTTP 响应与请求解码工具
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/pkg/logging"
)

// maxBodyBytes JSON 请求体上限
const maxBodyBytes = 1 << 20

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON 写 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError 按错误类别写响应；5xx 记录完整错误，对外只返回通用信息
func WriteError(w http.ResponseWriter, r *http.Request, log *logging.Logger, err error) {
	e := apperr.From(err)
	status := e.Kind.Status()

	if status >= http.StatusInternalServerError && log != nil {
		log.WithContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}

	WriteJSON(w, status, ErrorResponse{Error: e.Message, Fields: e.Fields})
}

// DecodeJSON 解码请求体到 dst；失败返回 Validation 错误
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is empty")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return apperr.ValidationFields("invalid request body", map[string]string{
				typeErr.Field: "must be a " + typeErr.Type.String(),
			})
		case errors.As(err, &maxErr):
			return apperr.Validation("request body too large")
		default:
			return apperr.Validation("invalid request body")
		}
	}
	return nil
}

// QueryInt 解析正整数查询参数；缺省或非法时返回 def
func QueryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
