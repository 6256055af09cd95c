package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{name: "disabled", token: "", header: "", want: http.StatusNoContent},
		{name: "valid", token: "s3cret", header: "Bearer s3cret", want: http.StatusNoContent},
		{name: "missing", token: "s3cret", header: "", want: http.StatusUnauthorized},
		{name: "wrong", token: "s3cret", header: "Bearer nope", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			TokenAuthMiddleware(tt.token)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("ожидали %d, получили %d", tt.want, rec.Code)
			}
		})
	}
}
