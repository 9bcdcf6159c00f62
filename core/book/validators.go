package book

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/soma/core"
)

var (
	bookTypeTag  = "booktype"
	bookTypeText = fmt.Sprintf("book type must be one of: %s", strings.Join(Types, ", "))

	ownedTag  = "bookowned"
	ownedText = fmt.Sprintf("owned must be one of: %s", strings.Join(OwnedEnum, ", "))

	isbnTag   = "isbn_digits"
	isbnText  = "invalid ISBN"
	isbnRegex = regexp.MustCompile(`^(\d{9}[\dX]|\d{13})$`)
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(bookTypeTag, bookTypeValidation)
	core.RegisterCustomTranslation(bookTypeTag, bookTypeText)

	_ = core.Validate.RegisterValidation(ownedTag, ownedValidation)
	core.RegisterCustomTranslation(ownedTag, ownedText)

	_ = core.Validate.RegisterValidation(isbnTag, isbnValidation)
	core.RegisterCustomTranslation(isbnTag, isbnText)
}

// Custom Validators

func bookTypeValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, t := range Types {
		if val == t {
			return true
		}
	}
	return false
}

func ownedValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, o := range OwnedEnum {
		if val == o {
			return true
		}
	}
	return false
}

// isbnValidation accepts cleaned ISBN-10 and ISBN-13 forms.
func isbnValidation(fl validator.FieldLevel) bool {
	return isbnRegex.MatchString(fl.Field().String())
}
