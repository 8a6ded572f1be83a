package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct-level validation tags.
//
// Validation is tag-driven: fields carry `validate` constraints and this
// function runs them all, reporting the first violation with field context.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid value for %s: failed %q constraint", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("configuration invalid: %w", err)
	}

	return nil
}
