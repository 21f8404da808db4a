package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type registerInput struct {
	Username string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(registerInput{Username: "ab", Email: "nope"})
	msg := FormatValidationError(err)

	assert.Contains(t, msg, "Username must be at least 3 characters")
	assert.Contains(t, msg, "Email must be a valid email")
	assert.Contains(t, msg, "Password is required")
}

func TestFormatValidationErrorPassthrough(t *testing.T) {
	assert.Equal(t, "EOF", FormatValidationError(errors.New("EOF")))
}
