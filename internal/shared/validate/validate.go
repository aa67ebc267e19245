// Package validate 封装 go-playground/validator，用于请求参数校验
//
// 错误中的字段名取自 json tag（如 "address.city"），而不是 Go 字段路径。
// 校验失败返回 KindValidation 的 *apperr.Error，每个失败字段一条消息。
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"tragic-bricks/internal/shared/apperr"
	"tragic-bricks/internal/shared/model"

	"github.com/go-playground/validator/v10"
)

// Validator 校验器
type Validator struct {
	validate *validator.Validate
}

// New 创建校验器并注册自定义规则
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "httpurl", isHTTPURL)
	mustRegister(v, "location_type", isLocationType)

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %q: %v", tag, err))
	}
}

// Struct 校验结构体；失败返回 *apperr.Error
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperr.Internal(err)
	}

	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fieldPath(fe)] = message(fe)
	}
	return apperr.ValidationFields(summary(fields), fields)
}

// fieldPath 去掉根结构体名，例如 "CreateLocationCommand.address.city" -> "address.city"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func summary(fields map[string]string) string {
	if len(fields) == 1 {
		for k, v := range fields {
			return k + ": " + v
		}
	}
	return "validation failed"
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("must contain at least %s %s", fe.Param(), unit(fe.Kind()))
		}
		return "must be at least " + fe.Param()
	case "max":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("must contain at most %s %s", fe.Param(), unit(fe.Kind()))
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "httpurl":
		return "must be an absolute http(s) URL"
	case "location_type":
		return "must be one of: " + joinTypes()
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}

func isSized(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}

func unit(k reflect.Kind) string {
	if k == reflect.String {
		return "characters"
	}
	return "items"
}

func joinTypes() string {
	names := make([]string, len(model.LocationTypes))
	for i, t := range model.LocationTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// ============================================================================
// 自定义规则
// ============================================================================

// IsHTTPURL 是否为带主机名的 http/https 绝对 URL
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isHTTPURL(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true // required 负责非空
	}
	return IsHTTPURL(s)
}

func isLocationType(fl validator.FieldLevel) bool {
	_, err := model.ParseLocationType(fl.Field().String())
	return err == nil
}
