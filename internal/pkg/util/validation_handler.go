package util

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateDTO 结构体校验，返回原始 ValidationErrors 供响应层统一归类
func ValidateDTO(dto any) error {
	return validate.Struct(dto)
}
