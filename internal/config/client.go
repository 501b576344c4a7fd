package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ClientConfig is the detection client configuration, built once at startup.
type ClientConfig struct {
	Endpoint     string `validate:"required,http_url"`
	Token        string `validate:"required_if=RequireToken true"`
	RequireToken bool
	Timeout      time.Duration `validate:"gt=0"`
}

// ConfigError reports missing or invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

var validate = validator.New()

// Validate checks that a request can be sent with this configuration.
func (c ClientConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ConfigError{Field: "client", Reason: err.Error()}
	}

	fe := fieldErrs[0]
	return &ConfigError{Field: strings.ToLower(fe.Field()), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is not set"
	case "required_if":
		return "is required by the detection service but not configured"
	case "http_url":
		return "is not a valid http or https URL"
	case "gt":
		return fmt.Sprintf("must be positive, got %v", fe.Value())
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
