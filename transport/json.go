package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

// DoJSON encodes payload (when non-nil) as the request body and executes it.
func (a *RESTAdapter) DoJSON(ctx context.Context, method string, rawURL string, query url.Values, payload any) (Response, error) {
	req := Request{Method: method, URL: rawURL, Query: query}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return Response{}, transportWrapError(
				err,
				goerrors.CategoryBadInput,
				"transport: encode request body",
				http.StatusBadRequest,
				map[string]any{"adapter": KindREST, "method": method, "url": rawURL},
			)
		}
		req.Body = body
	}
	return a.Do(ctx, req)
}

// DecodeJSON unmarshals a response body into out.
func DecodeJSON(res Response, out any) error {
	if len(res.Body) == 0 {
		return transportError(
			"transport: response body is empty",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode response body",
			http.StatusBadGateway,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	return nil
}
