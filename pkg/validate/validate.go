// Package validate 注册请求绑定使用的自定义校验规则。
package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:00)?$|^24:00(:00)?$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
)

// Register 将自定义规则注册到 gin 的默认校验器
//   - clock    墙上时间 HH:MM，允许 24:00
//   - timezone IANA 时区名
//   - slug     小写字母、数字与单个连字符/下划线
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验器类型不是 *validator.Validate")
	}
	return RegisterOn(v)
}

// RegisterOn 将自定义规则注册到指定校验器
func RegisterOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"clock":    isClock,
		"timezone": isTimezone,
		"slug":     isSlug,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("注册校验规则 %s 失败: %w", tag, err)
		}
	}
	return nil
}

func isClock(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}

func isTimezone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func isSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}
