package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestRESTAdapter_SendsHeadersQueryAndBody(t *testing.T) {
	var gotAuth, gotVersion, gotFilter string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		gotFilter = r.URL.Query().Get("filters[courseId][$eq]")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":7}}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client()).WithBearerToken("secret")
	adapter.DefaultHeaders["Notion-Version"] = "2022-06-28"

	res, err := adapter.DoJSON(
		context.Background(),
		http.MethodPost,
		server.URL+"/api/courses",
		url.Values{"filters[courseId][$eq]": []string{"course-a"}},
		map[string]any{"data": map[string]any{"name": "Course A"}},
	)
	if err != nil {
		t.Fatalf("do json: %v", err)
	}
	if !res.IsSuccess() || res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 success, got %d", res.StatusCode)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer token header, got %q", gotAuth)
	}
	if gotVersion != "2022-06-28" {
		t.Fatalf("expected default header, got %q", gotVersion)
	}
	if gotFilter != "course-a" {
		t.Fatalf("expected filter query, got %q", gotFilter)
	}
	data, _ := gotBody["data"].(map[string]any)
	if data["name"] != "Course A" {
		t.Fatalf("expected encoded body, got %#v", gotBody)
	}

	var decoded struct {
		Data struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	if err := DecodeJSON(res, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Data.ID != 7 {
		t.Fatalf("expected id 7, got %d", decoded.Data.ID)
	}
}

func TestRESTAdapter_NonSuccessStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer server.Close()

	res, err := NewRESTAdapter(server.Client()).Do(context.Background(), Request{URL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsSuccess() {
		t.Fatalf("expected non-success response")
	}
	if string(res.Body) != `{"error":"bad"}` {
		t.Fatalf("expected body to be preserved, got %q", string(res.Body))
	}
}

func TestRESTAdapter_RequiresURL(t *testing.T) {
	if _, err := NewRESTAdapter(nil).Do(context.Background(), Request{}); err == nil {
		t.Fatalf("expected missing url error")
	}
}
