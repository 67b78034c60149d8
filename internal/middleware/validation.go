package middleware

import (
	"fmt"

	"erpadmin/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the domain binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("dispatch_status", func(fl validator.FieldLevel) bool {
		return model.DispatchStatus(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("inventory_status", func(fl validator.FieldLevel) bool {
		return model.InventoryStatus(fl.Field().String()).Valid()
	})
}
