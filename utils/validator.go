package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the struct's validate tags and folds the failures into
// one readable error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var msgs []string
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, ve := range verrs {
		field := strings.ToLower(ve.Field())
		switch ve.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+ve.Param()+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+ve.Param()+" characters")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "len":
			msgs = append(msgs, field+" must be exactly "+ve.Param()+" characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, ", "))
}
