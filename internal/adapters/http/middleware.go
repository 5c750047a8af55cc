// Package http exposes the REST surface for posts, users and comments.
// Caller identity arrives in the X-User-ID header and is trusted as-is;
// authentication sits in front of this service.
package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
	"gitlab.com/aventra/api/pulse-content-service/pkg/contextkeys"
)

// RequestIDMiddleware ensures every request carries a request id in its
// context and echoes it back in the response headers.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerID extracts the trusted caller identity and stores it in the request
// context for log enrichment. A missing header writes the error response and
// reports false.
func callerID(w http.ResponseWriter, r *http.Request, logger domain.Logger) (string, *http.Request, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		logger.Warn(r.Context(), "Request missing X-User-ID header", "path", r.URL.Path)
		domain.NewErrorResponse(domain.ErrCodeBadRequest, "Missing X-User-ID header.", "").WriteJSON(w, http.StatusBadRequest)
		return "", r, false
	}
	ctx := context.WithValue(r.Context(), contextkeys.UserIDKey, userID)
	return userID, r.WithContext(ctx), true
}
