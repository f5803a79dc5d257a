package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	goerrors "github.com/goliatone/go-errors"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != TextCodeExternalFailure {
		t.Fatalf("expected %q text code, got %q", TextCodeExternalFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), Request{})
	if err == nil {
		t.Fatalf("expected nil adapter error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != TextCodeInternal {
		t.Fatalf("expected %q text code, got %q", TextCodeInternal, rich.TextCode)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d code, got %d", http.StatusInternalServerError, rich.Code)
	}
}

func TestStatusCategory(t *testing.T) {
	cases := map[int]goerrors.Category{
		http.StatusUnauthorized:        goerrors.CategoryAuth,
		http.StatusForbidden:           goerrors.CategoryAuthz,
		http.StatusNotFound:            goerrors.CategoryNotFound,
		http.StatusTooManyRequests:     goerrors.CategoryRateLimit,
		http.StatusUnprocessableEntity: goerrors.CategoryBadInput,
		http.StatusServiceUnavailable:  goerrors.CategoryExternal,
	}
	for status, want := range cases {
		if got := StatusCategory(status); got != want {
			t.Fatalf("status %d: expected %q, got %q", status, want, got)
		}
	}
	if transportTextCode(goerrors.CategoryNotFound) != TextCodeNotFound {
		t.Fatalf("expected not found text code")
	}
}

func TestBodyExcerpt(t *testing.T) {
	if got := BodyExcerpt([]byte(`{"error":"short"}`)); got != `{"error":"short"}` {
		t.Fatalf("expected short body unchanged, got %q", got)
	}
	long := []byte(strings.Repeat("a", 511) + "é" + strings.Repeat("b", 100))
	got := BodyExcerpt(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got suffix %q", got[len(got)-5:])
	}
	if !utf8.ValidString(got) {
		t.Fatalf("expected excerpt cut on a rune boundary")
	}
	if len(got) != 511+len("...") {
		t.Fatalf("expected cut before the split rune, got %d bytes", len(got))
	}
}
