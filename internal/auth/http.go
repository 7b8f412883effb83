package auth

import (
	"net/http"
)

// HTTPMiddleware attaches the Principal from a valid bearer token to the
// request context. Requests without a token pass through anonymously;
// an invalid token is rejected with 401.
func HTTPMiddleware(secret string, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := ParseBearer(h, secret)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
