package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	cases := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{name: "generated when absent", inbound: "", keep: false},
		{name: "caller id kept", inbound: "edge-7f3a:42", keep: true},
		{name: "header injection replaced", inbound: "abc\r\nSet-Cookie: x=1", keep: false},
		{name: "spaces replaced", inbound: "a b", keep: false},
		{name: "oversized replaced", inbound: strings.Repeat("a", maxRequestIDLen+1), keep: false},
		{name: "max length kept", inbound: strings.Repeat("b", maxRequestIDLen), keep: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
			if tc.inbound != "" {
				req.Header[RequestIDHeader] = []string{tc.inbound}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Fatalf("response header %q, context %q", got, seen)
			}
			if tc.keep {
				if seen != tc.inbound {
					t.Fatalf("got %q, want caller id %q", seen, tc.inbound)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("expected generated uuid, got %q", seen)
			}
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RequestIDFromContext(req.Context()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
