package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"researchhub/internal/models"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(:[a-z][a-z0-9_]*)?$`)

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Report json names instead of struct field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on programmer error, so panic like regexp.MustCompile.
	must(v.RegisterValidation("research_status", validateResearchStatus))
	must(v.RegisterValidation("code", validateCode))

	return &CustomValidator{validator: v}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func validateResearchStatus(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidResearchStatus(fl.Field().String())
}

// validateCode accepts role codes (teacher) and permission codes (research:review).
func validateCode(fl playgroundvalidator.FieldLevel) bool {
	return codePattern.MatchString(fl.Field().String())
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields formats validation errors into a field to message map
func (ve ValidationErrors) Fields() map[string]string {
	errMap := make(map[string]string, len(ve))
	for _, err := range ve {
		field := err.Field()
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errMap[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			errMap[field] = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s", field, param)
		case "gt":
			errMap[field] = fmt.Sprintf("%s must be greater than %s", field, param)
		case "oneof":
			errMap[field] = fmt.Sprintf("%s must be one of [%s]", field, param)
		case "research_status":
			errMap[field] = fmt.Sprintf("%s must be one of: %s", field, strings.Join(statusNames(), ", "))
		case "code":
			errMap[field] = fmt.Sprintf("%s must be a lowercase code", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, tag)
		}
	}
	return errMap
}

func statusNames() []string {
	statuses := models.ResearchStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
