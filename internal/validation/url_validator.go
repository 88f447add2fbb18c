package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	errpkg "github.com/artemiysm/TG-Video/internal/errors"
)

// AcceptedSchemes are the URL prefixes a media link must start with.
var AcceptedSchemes = []string{"http://", "https://"}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("media_url", validateMediaURL)
}

// ValidateMediaURL checks that raw looks like a link the downloader can fetch.
func ValidateMediaURL(raw string) error {
	if err := validate.Var(raw, "required,media_url"); err != nil {
		return fmt.Errorf("%w %q: %v", errpkg.ErrInvalidURL, raw, err)
	}
	return nil
}

// IsMediaURL is ValidateMediaURL as a predicate.
func IsMediaURL(raw string) bool {
	return ValidateMediaURL(raw) == nil
}

func validateMediaURL(fl validator.FieldLevel) bool {
	value := fl.Field().String()

	for _, prefix := range AcceptedSchemes {
		if strings.HasPrefix(value, prefix) && len(value) > len(prefix) {
			return true
		}
	}
	return false
}
