package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MaxOriginLength bounds origin strings accepted from configuration and the admin API.
const MaxOriginLength = 2048

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("cors_origin", validateOriginTag); err != nil {
		panic(fmt.Sprintf("failed to register cors_origin validator: %v", err))
	}
	if err := Validate.RegisterValidation("header_list", validateHeaderListTag); err != nil {
		panic(fmt.Sprintf("failed to register header_list validator: %v", err))
	}
}

func validateOriginTag(fl validator.FieldLevel) bool {
	return ValidateOrigin(fl.Field().String()) == nil
}

func validateHeaderListTag(fl validator.FieldLevel) bool {
	return ValidateHeaderList(fl.Field().String()) == nil
}

// ValidateOrigin checks that origin is usable as an origin-set entry.
// Matching is byte-exact, so no normalization is applied here; the value is
// only rejected when it could never equal a browser-sent Origin header.
func ValidateOrigin(origin string) error {
	if origin == "" {
		return fmt.Errorf("origin must not be empty")
	}
	if len(origin) > MaxOriginLength {
		return fmt.Errorf("origin exceeds %d bytes", MaxOriginLength)
	}
	for _, r := range origin {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("origin %q contains whitespace or control characters", origin)
		}
	}
	return nil
}

// ValidateHeaderList checks a comma-separated header or method list such as "GET, POST".
// An empty list is valid and means "use the default".
func ValidateHeaderList(list string) error {
	if list == "" {
		return nil
	}
	for _, item := range strings.Split(list, ",") {
		token := strings.TrimSpace(item)
		if token == "" {
			return fmt.Errorf("empty entry in list %q", list)
		}
		for _, r := range token {
			if !isTokenChar(r) {
				return fmt.Errorf("invalid character %q in %q", r, token)
			}
		}
	}
	return nil
}

// isTokenChar reports whether r is an RFC 9110 tchar.
func isTokenChar(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune("!#$%&'*+-.^_`|~", r)
}

// Struct validates s with the shared validator.
func Struct(s any) error {
	return Validate.Struct(s)
}
