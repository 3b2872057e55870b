package validate

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// mobile 010-1234-5678, Seoul 02-123-4567, regional 031-123-4567; hyphens optional
var phonePattern = regexp.MustCompile(`^0(1[016789]|2|[3-6][1-5])-?\d{3,4}-?\d{4}$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator shared validator with the kr_phone tag registered
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		_ = RegisterPhone(instance)
	})
	return instance
}

// RegisterPhone adds the kr_phone tag to v (also used for gin binding)
func RegisterPhone(v *validator.Validate) error {
	return v.RegisterValidation("kr_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

func IsValidPhone(phone string) bool {
	return Validator().Var(phone, "required,kr_phone") == nil
}

func IsValidEmail(email string) bool {
	return Validator().Var(email, "required,email") == nil
}
