package contract

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeContract                = "CONTRACT_ERROR"
	TextCodeUnknownEntity           = "CONTRACT_UNKNOWN_ENTITY"
	TextCodeIllegalField            = "CONTRACT_ILLEGAL_FIELD"
	TextCodeMissingRequiredField    = "CONTRACT_MISSING_REQUIRED_FIELD"
	TextCodeImmutableFieldViolation = "CONTRACT_IMMUTABLE_FIELD_VIOLATION"
	TextCodeInvalidEnumValue        = "CONTRACT_INVALID_ENUM_VALUE"
	TextCodeInvalidRelationValue    = "CONTRACT_INVALID_RELATION_VALUE"
)

// HasCode reports whether err carries the given contract text code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

func contractError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeContract)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func contractWrapError(source error, message string, metadata map[string]any) error {
	err := goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeContract)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func validationError(textCode string, message string, metadata map[string]any) error {
	category := goerrors.CategoryValidation
	if textCode == TextCodeUnknownEntity {
		category = goerrors.CategoryNotFound
	}
	err := goerrors.New(message, category).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(textCode).
		WithSeverity(goerrors.SeverityError)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
