package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"amokanban/pkg/logger"
	"amokanban/pkg/model"

	"github.com/go-playground/validator/v10"
)

var bookingTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors for an AppError details map.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_time", validateBookingTime); err != nil {
		log.Fatal("Failed to register 'booking_time' validator",
			"error", err,
		)
	}

	return &BookingValidator{
		validate: v,
	}
}

func validateBookingTime(fl validator.FieldLevel) bool {
	return bookingTimeRegex.MatchString(fl.Field().String())
}

func (v *BookingValidator) Validate(booking *model.KanbanBooking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "booking_time":
			message = fmt.Sprintf("%s must be a 24h HH:MM time", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be a %s date", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
