// Package middleware provides the HTTP middleware of the query gateway.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation id of a request. The gateway echoes
// it on every response and the statement client forwards it to the engine, so
// one id follows a query across both hops.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID tags each request with a correlation id: an incoming header wins,
// otherwise a UUID is minted. The id is echoed on the response and stored in
// the request context for handler logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext extracts the request id from the context, or returns
// an empty string when none is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
