package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateEmail checks that raw is a well-formed email identity.
func ValidateEmail(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := payloadValidator().Var(raw, "required,email"); err != nil {
		return fmt.Errorf("%w: %q is not an email address", ErrValidation, raw)
	}
	return nil
}

// ValidatePayload checks that e carries exactly the payload for its kind and
// that the payload satisfies the field rules. Failures wrap ErrValidation.
func ValidatePayload(e Entry) error {
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	present := 0
	for _, p := range []bool{e.Research != nil, e.Partnership != nil, e.Ranking != nil} {
		if p {
			present++
		}
	}
	payload := e.Payload()
	if payload == nil {
		return fmt.Errorf("%w: %s payload is required", ErrValidation, e.Kind)
	}
	if present > 1 {
		return fmt.Errorf("%w: payload does not match kind %s", ErrValidation, e.Kind)
	}
	trimPayload(payload)
	if err := payloadValidator().Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: invalid fields: %s", ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// trimPayload strips surrounding whitespace from every string field in place.
func trimPayload(payload any) {
	v := reflect.ValueOf(payload)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
