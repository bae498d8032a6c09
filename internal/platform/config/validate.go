package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks `validate` struct tags on target.
func Validate(target any) error {
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// ParseEnvAndValidate loads target from the environment and validates it.
func ParseEnvAndValidate(target any) error {
	if err := ParseEnv(target); err != nil {
		return err
	}
	return Validate(target)
}
