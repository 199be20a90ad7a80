package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	tests := []struct {
		name   string
		token  string
		header string
		query  string
		want   int
	}{
		{name: "disabled", want: http.StatusNoContent},
		{name: "header", token: "s3cret", header: "Bearer s3cret", want: http.StatusNoContent},
		{name: "query", token: "s3cret", query: "?token=s3cret", want: http.StatusNoContent},
		{name: "wrong", token: "s3cret", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing", token: "s3cret", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			BearerAuthMiddleware(tt.token)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("код %d, ожидали %d", rec.Code, tt.want)
			}
		})
	}
}
