package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"aisocial/internal/domain"
)

func TestInvokeSendsWorkflowIDAndDecodesPublish(t *testing.T) {
	var gotBody map[string]string
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"instagram":{"success":true},"TikTok":{"success":false,"error":"token expired"},"meta":"ignored"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "secret", BaseURL: srv.URL + "/functions/v1/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := client.Invoke(context.Background(), "wf-123")
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if gotPath != "/functions/v1/execute-workflow" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotBody["workflowId"] != "wf-123" {
		t.Fatalf("body = %#v", gotBody)
	}
	if !res.Publish["instagram"].Success {
		t.Fatalf("instagram outcome = %+v", res.Publish["instagram"])
	}
	if tk := res.Publish["tiktok"]; tk.Success || tk.Error != "token expired" {
		t.Fatalf("tiktok outcome = %+v", tk)
	}
	if _, ok := res.Publish["meta"]; ok {
		t.Fatal("non-object keys must be ignored")
	}
}

func TestInvokeTopLevelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"prompt rejected"}`))
	}))
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	res, err := client.Invoke(context.Background(), "wf")
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if res.Error != "prompt rejected" {
		t.Fatalf("Error = %q", res.Error)
	}
}

func TestInvokeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream down"}`))
	}))
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Invoke(context.Background(), "wf")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestInvokeRequiresCredentials(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "http://example.invalid"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Invoke(context.Background(), "wf"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewClient(Options{APIKey: "k"}); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("expected ErrMissingBaseURL, got %v", err)
	}
}

func TestDecodeJobResultEmptyBody(t *testing.T) {
	res, err := DecodeJobResult(nil)
	if err != nil {
		t.Fatalf("DecodeJobResult: %v", err)
	}
	if res.Error != "" || len(res.Publish) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
