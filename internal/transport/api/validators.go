package api

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"

	"github.com/go-playground/validator/v10"
)

// validateCurrency проверяет буквенный код валюты: ровно три заглавные латинские буквы.
func validateCurrency(fl validator.FieldLevel) bool {
	code, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if len(code) != 3 { //nolint:mnd
		return false
	}
	for i := range len(code) {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

func registerValidators() error {
	v, _ := binding.Validator.Engine().(*validator.Validate)
	if err := v.RegisterValidation("currency", validateCurrency); err != nil {
		return fmt.Errorf("validator registration: %s", err.Error())
	}
	return nil
}
