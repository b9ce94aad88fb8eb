package api

import (
	"github.com/go-playground/validator/v10"
)

type createRequest struct {
	Name      string `json:"name" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,gte=1,lte=100"`
	IsChecked bool   `json:"is_checked"`
}

type patchRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1"`
	Quantity  *int    `json:"quantity" validate:"omitempty,gte=1,lte=100"`
	IsChecked *bool   `json:"is_checked"`
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
