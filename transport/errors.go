package transport

import (
	"net/http"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeBadInput        = "TRANSPORT_BAD_INPUT"
	TextCodeUnauthorized    = "TRANSPORT_UNAUTHORIZED"
	TextCodeForbidden       = "TRANSPORT_FORBIDDEN"
	TextCodeNotFound        = "TRANSPORT_NOT_FOUND"
	TextCodeRateLimited     = "TRANSPORT_RATE_LIMITED"
	TextCodeExternalFailure = "TRANSPORT_EXTERNAL_FAILURE"
	TextCodeInternal        = "TRANSPORT_INTERNAL"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return TextCodeBadInput
	case goerrors.CategoryAuth:
		return TextCodeUnauthorized
	case goerrors.CategoryAuthz:
		return TextCodeForbidden
	case goerrors.CategoryNotFound:
		return TextCodeNotFound
	case goerrors.CategoryRateLimit:
		return TextCodeRateLimited
	case goerrors.CategoryExternal:
		return TextCodeExternalFailure
	default:
		return TextCodeInternal
	}
}

const maxBodyExcerpt = 512

// StatusCategory maps a non-2xx upstream status onto an error category.
// Unrecognized statuses count as external failures.
func StatusCategory(statusCode int) goerrors.Category {
	switch {
	case statusCode == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case statusCode == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case statusCode == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case statusCode == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}

// BodyExcerpt returns at most 512 bytes of an upstream body, cut on a rune
// boundary, for inclusion in error messages.
func BodyExcerpt(body []byte) string {
	if len(body) <= maxBodyExcerpt {
		return string(body)
	}
	cut := maxBodyExcerpt
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
