package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// New returns a validator with the document and phone tags registered:
//
//	dni, nie   - checksum-verified Spanish identity numbers
//	phone_es   - anything NormalizePhone accepts
//	plaintext  - single line text without control or non-XML characters
//	document   - struct level: DocumentType/DocumentNumber pair
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("dni", func(fl validator.FieldLevel) bool {
		return ValidateDNI(fl.Field().String()).Valid
	})
	_ = v.RegisterValidation("nie", func(fl validator.FieldLevel) bool {
		return ValidateNIE(fl.Field().String()).Valid
	})
	_ = v.RegisterValidation("phone_es", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("plaintext", func(fl validator.FieldLevel) bool {
		return PlainText(fl.Field().String())
	})
	// document=DocType validates the field against the sibling field named in the param.
	_ = v.RegisterValidation("document", func(fl validator.FieldLevel) bool {
		parent := reflect.Indirect(fl.Parent())
		docType := parent.FieldByName(fl.Param())
		if !docType.IsValid() {
			return false
		}
		return ValidateDocument(docType.String(), fl.Field().String()).Valid
	})

	return v
}

// PlainText reports whether s is valid UTF-8 free of control characters and of
// code points XML 1.0 cannot carry. Such values would reach the traveler report altered.
func PlainText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) || (r >= 0xD800 && r <= 0xDFFF) || r == 0xFFFE || r == 0xFFFF {
			return false
		}
	}
	return true
}

// Describe flattens validator errors into a single human readable line.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
