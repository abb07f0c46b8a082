package middleware

import (
	"net/http"
	"strings"

	"amokanban/pkg/logger"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// ContentTypeValidation rejects bodies of any type other than allowed. With
// no allowed types given only JSON passes. Bodiless requests are not checked.
func ContentTypeValidation(log *logger.Logger, allowed ...string) func(http.Handler) http.Handler {
	if len(allowed) == 0 {
		allowed = []string{ContentTypeJSON}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r) {
				contentType := extractContentType(r.Header.Get("Content-Type"))

				if !isAllowed(contentType, allowed) {
					log.Warn("Invalid Content-Type header",
						"request_id", GetRequestID(r.Context()),
						"content_type", contentType,
						"path", r.URL.Path,
						"method", r.Method,
					)
					writeJSONError(w, http.StatusUnsupportedMediaType, "INVALID_INPUT",
						"Content-Type must be one of: "+strings.Join(allowed, ", "))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	}
	return false
}

func extractContentType(header string) string {
	if header == "" {
		return ""
	}

	mediaType, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isAllowed(contentType string, allowed []string) bool {
	for _, a := range allowed {
		if contentType == a {
			return true
		}
	}
	return false
}
