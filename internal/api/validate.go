package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/WaterCountry/CodeGra.de/internal/document"
)

const backendTag = "backend"

// requestValidator checks decoded request bodies and reports problems per
// JSON field, in English.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	v := validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(backendTag, func(fl validator.FieldLevel) bool {
		_, err := document.Lookup(fl.Field().String())
		return err == nil
	})
	text := "{0} must be one of: " + strings.Join(document.Backends(), ", ")
	_ = v.RegisterTranslation(
		backendTag, translator,
		func(t ut.Translator) error { return t.Add(backendTag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(backendTag, fe.Field())
			return s
		},
	)

	return &requestValidator{validate: v, translator: translator}
}

// Check validates s and returns the failing fields keyed by their JSON
// path, or nil when s is valid.
func (rv *requestValidator) Check(s any) (map[string]string, error) {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return nil, err
	}
	fields := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		fields[fieldPath(vErr.Namespace())] = vErr.Translate(rv.translator)
	}
	return fields, nil
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
