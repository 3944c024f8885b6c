package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ethAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

	v = newValidator()
)

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("eth_address", isEthAddress)
	return validate
}

func isEthAddress(fl validator.FieldLevel) bool {
	return ethAddressPattern.MatchString(fl.Field().String())
}

// Struct validates tagged request structs and returns an error naming
// every failing field, suitable for a 400 response body.
func Struct(target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Field(), fieldErr.Tag()))
	}

	return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
}

func EthAddress(value string) bool {
	return ethAddressPattern.MatchString(value)
}
