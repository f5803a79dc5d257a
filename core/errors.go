package core

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SyncErrorLocked                = "SYNC_LOCKED"
	SyncErrorMissingIdentity       = "SYNC_MISSING_IDENTITY"
	SyncErrorUpsertFailed          = "SYNC_UPSERT_FAILED"
	SyncErrorRootNotFound          = "SYNC_ROOT_NOT_FOUND"
	SyncErrorMissingParentRelation = "SYNC_MISSING_PARENT_RELATION"
	SyncErrorWriteBackFailed       = "SYNC_WRITE_BACK_FAILED"
	SyncErrorImmutableChanged      = "SYNC_IMMUTABLE_FIELD_CHANGED"
	SyncErrorInternal              = "SYNC_INTERNAL_ERROR"
	SyncErrorInvalidRequest        = "SYNC_INVALID_REQUEST"
	ConfigErrorMissingVariable     = "CONFIG_MISSING_VARIABLE"
	ConfigErrorInvalid             = "CONFIG_INVALID"
)

// NewSyncError builds a categorized error carrying textCode and metadata.
func NewSyncError(message string, category goerrors.Category, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(syncHTTPStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapSyncError wraps source under textCode. A rich source stays reachable
// as the cause and its text codes are listed under the cause_codes metadata
// key, so HasCode sees every code in the chain.
func WrapSyncError(source error, category goerrors.Category, textCode string, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewSyncError(message, category, textCode, metadata)
	}
	var err *goerrors.Error
	codes := chainCodes(source)
	if len(codes) > 0 {
		err = goerrors.New(message, category)
		err.Source = source
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	err.WithCode(syncHTTPStatus(category)).WithTextCode(textCode)

	meta := make(map[string]any, len(metadata)+1)
	for key, value := range metadata {
		meta[key] = value
	}
	if len(codes) > 0 {
		meta[metaCauseCodes] = codes
	}
	if len(meta) > 0 {
		err.WithMetadata(meta)
	}
	return err
}

const (
	metaCauseCodes = "cause_codes"
	maxCauseDepth  = 16
)

// HasCode reports whether err, or any rich error it wraps, carries code.
func HasCode(err error, code string) bool {
	return slices.Contains(chainCodes(err), code)
}

// chainCodes collects the text codes along err's cause chain, outermost first.
func chainCodes(err error) []string {
	var codes []string
	for depth := 0; err != nil && depth < maxCauseDepth; depth++ {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			break
		}
		if rich.TextCode != "" && !slices.Contains(codes, rich.TextCode) {
			codes = append(codes, rich.TextCode)
		}
		if listed, ok := rich.Metadata[metaCauseCodes].([]string); ok {
			for _, code := range listed {
				if !slices.Contains(codes, code) {
					codes = append(codes, code)
				}
			}
		}
		next := rich.Source
		if next == nil {
			next = errors.Unwrap(rich)
		}
		if next == nil || next == error(rich) {
			break
		}
		err = next
	}
	return codes
}

// ErrorMessage renders err for reports and write-back, including the wrapped
// cause when the rich message alone would hide it.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		message := strings.TrimSpace(rich.Message)
		cause := rich.Source
		if cause == nil {
			cause = errors.Unwrap(rich)
		}
		if cause != nil && cause != error(rich) {
			causeText := strings.TrimSpace(ErrorMessage(cause))
			if causeText != "" && !strings.Contains(message, causeText) {
				if message == "" {
					return causeText
				}
				return message + ": " + causeText
			}
		}
		if message != "" {
			return message
		}
	}
	return err.Error()
}

// MapError normalizes any error into a rich envelope with a status code and
// text code, for CLI and command surfaces.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return ensureEnvelope(rich)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureEnvelope(mapped)
}

func ensureEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = syncHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = SyncErrorInternal
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func syncHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func missingVariableError(variable string, field string) error {
	return NewSyncError(
		fmt.Sprintf("Missing required environment variable %s", variable),
		goerrors.CategoryBadInput,
		ConfigErrorMissingVariable,
		map[string]any{"variable": variable, "field": field},
	)
}
