package handler

import (
	"strings"

	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/go-playground/validator/v10"
)

const invalidInputMessage = "Invalid inputs passed, please check your data."

var validate = validator.New(validator.WithRequiredStructEnabled())

type createPlaceRequest struct {
	Title       string `validate:"required"`
	Description string `validate:"min=5"`
	Address     string `validate:"required"`
}

type updatePlaceRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"min=5"`
}

type signupRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validateRequest возвращает 422 со списком непрошедших полей в причине
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+":"+fe.Tag())
		}
	}
	return domain.NewUnprocessable(invalidInputMessage, &fieldsError{fields: fields, err: err})
}

type fieldsError struct {
	fields []string
	err    error
}

func (e *fieldsError) Error() string {
	if len(e.fields) == 0 {
		return e.err.Error()
	}
	return "invalid fields " + strings.Join(e.fields, ", ")
}

func (e *fieldsError) Unwrap() error { return e.err }
