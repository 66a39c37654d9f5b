package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var reviewerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9@._:-]{0,254}$`)

func reviewerIDValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return reviewerIDRegex.MatchString(val)
}

func oneOfValidator(values ...string) func(fl validator.FieldLevel) bool {
	return func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		for _, v := range values {
			if val == v {
				return true
			}
		}
		return false
	}
}

func uuidValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(uuid.UUID)
	if !ok {
		return false
	}
	return val != uuid.Nil
}
