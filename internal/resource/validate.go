package resource

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	pkgerrors "medservice-console/pkg/errors"
)

// FormError 本地表单校验失败，字段键使用 JSON 字段名
type FormError struct {
	Fields map[string][]string
}

func (e *FormError) Error() string {
	return pkgerrors.FlattenFields(e.Fields)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// formValidator 与 gin 的 binding 标签保持一致，字段名取 json 标签
func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.SetTagName("binding")
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate 规范化并校验表单；失败时返回 *FormError，不发起任何网络请求
func Validate(f Form) error {
	f.Normalize()

	err := formValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return &FormError{Fields: fields}
}

// fieldMessage 与上游的校验提示措辞保持一致
func fieldMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "datetime":
		return fmt.Sprintf("The %s field must match the format %s.", field, fe.Param())
	case "ip":
		return fmt.Sprintf("The %s field must be a valid IP address.", field)
	case "latitude", "longitude":
		return fmt.Sprintf("The %s field must be a valid %s.", field, fe.Tag())
	case "gt", "gte":
		return fmt.Sprintf("The selected %s is invalid.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
