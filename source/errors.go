package source

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-content-sync/transport"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeRecordNotFound = "SOURCE_RECORD_NOT_FOUND"
	TextCodeRequestFailed  = "SOURCE_REQUEST_FAILED"
	TextCodeInvalidFixture = "SOURCE_INVALID_FIXTURE"
)

func notFoundError(id string) error {
	return goerrors.New(fmt.Sprintf("source: record %s not found", id), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeRecordNotFound).
		WithMetadata(map[string]any{"record_id": id})
}

func requestError(operation string, statusCode int, body []byte, metadata map[string]any) error {
	excerpt := transport.BodyExcerpt(body)
	meta := map[string]any{"operation": operation, "status_code": statusCode, "body": excerpt}
	for key, value := range metadata {
		meta[key] = value
	}
	return goerrors.New(
		fmt.Sprintf("source: %s failed with status %d: %s", operation, statusCode, excerpt),
		transport.StatusCategory(statusCode),
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeRequestFailed).
		WithMetadata(meta)
}

func wrapError(source error, textCode string, message string, metadata map[string]any) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// IsNotFound reports whether err is a missing source record.
func IsNotFound(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == TextCodeRecordNotFound
}
