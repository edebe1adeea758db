package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/fixora/accounts/domain/entity"
	"github.com/fixora/accounts/pkg/apperror"
)

var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())

	// report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("birthday", func(fl playground.FieldLevel) bool {
		_, ok := entity.ParseBirthday(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("nospace", func(fl playground.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t\r\n")
	})

	return v
}

// ValidateStruct checks the `validate` tags of s and reports the first failing field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.NewValidation("Datos de entrada inválidos")
	}

	return apperror.NewValidation(describe(fieldErrs[0]))
}

func describe(fe playground.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es requerido", field)
	case "email":
		return fmt.Sprintf("El campo %s debe ser un correo válido", field)
	case "min":
		return fmt.Sprintf("El campo %s debe tener al menos %s caracteres", field, fe.Param())
	case "max":
		return fmt.Sprintf("El campo %s debe tener como máximo %s caracteres", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("El campo %s debe ser uno de: %s", field, fe.Param())
	case "birthday":
		return fmt.Sprintf("El campo %s debe tener el formato AAAA-MM-DD y no ser futuro", field)
	case "nospace":
		return fmt.Sprintf("El campo %s no puede contener espacios", field)
	default:
		return fmt.Sprintf("El campo %s es inválido", field)
	}
}

func ValidateEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}
