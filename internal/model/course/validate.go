package course

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// 只有空标签或空函数才会注册失败
	_ = v.RegisterValidation("password", validatePassword)
	return v
}

// validatePassword 校验注册密码：至少 8 个字符，且同时包含 ASCII 字母
// 和数字。
func validatePassword(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len([]rune(value)) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return letter && digit
}

// FieldError 单个校验失败的表单字段
type FieldError struct {
	Field   string
	Message string
}

// ValidationError 列出表单所有校验失败的字段
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Validate 校验表单结构体，失败时返回 *ValidationError
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate form: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: e.Field(), Message: fieldMessage(e)})
	}
	return out
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "email":
		return "invalid email format"
	case "password":
		return "must be at least 8 characters long and contain both letters and numbers"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return "validation failed on " + e.Tag()
	}
}
