package http

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "amokanban/pkg/errors"
)

// QueryBool reads a boolean query parameter. Absent means false; "1", "true",
// "yes" and "on" are true.
func QueryBool(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// QueryInt64 reads an optional integer query parameter; ok is false when absent.
func QueryInt64(r *http.Request, name string) (value int64, ok bool, err error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, apperrors.InvalidInput("invalid " + name + " parameter: " + s)
	}
	return v, true, nil
}
