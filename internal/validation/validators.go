package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/benvon/moodhome/internal/models"
	"github.com/go-playground/validator/v10"
)

// MaxEmotionLength bounds a single emotion label.
const MaxEmotionLength = 64

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	custom := map[string]validator.Func{
		"priority":          validatePriority,
		"suggestion_type":   validateSuggestionType,
		"relationship":      validateRelationship,
		"completion_status": validateCompletionStatus,
		"emotion":           validateEmotion,
	}
	for tag, fn := range custom {
		if err := Validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

func validatePriority(fl validator.FieldLevel) bool {
	return models.Priority(fl.Field().String()).Valid()
}

func validateSuggestionType(fl validator.FieldLevel) bool {
	return models.SuggestionType(fl.Field().String()).Valid()
}

func validateRelationship(fl validator.FieldLevel) bool {
	return models.Relationship(fl.Field().String()).Valid()
}

func validateCompletionStatus(fl validator.FieldLevel) bool {
	return models.CompletionStatus(fl.Field().String()).Valid()
}

// validateEmotion accepts a non-blank label without control characters.
func validateEmotion(fl validator.FieldLevel) bool {
	return ValidateEmotion(fl.Field().String()) == nil
}

// ValidateEmotion checks a single emotion label
func ValidateEmotion(label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return fmt.Errorf("emotion label must not be blank")
	}
	if utf8.RuneCountInString(trimmed) > MaxEmotionLength {
		return fmt.Errorf("emotion label exceeds %d characters", MaxEmotionLength)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("emotion label contains control characters")
		}
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// SanitizeEmotions trims each label. Blank labels are kept so validation
// can reject them.
func SanitizeEmotions(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

// FieldErrors flattens validator errors into field -> rule details for the
// INVALID_INPUT envelope.
func FieldErrors(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Namespace()] = fe.Tag()
	}
	return details
}
