// Package handlers implements the HTTP endpoints. Handlers read the caller
// identity from the X-User-ID header; authenticating that header is the
// job of whatever sits in front of this service.
package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/networth-labs/tracker/internal/api/middleware"
)

// UserID returns the caller identity from the request, empty when absent.
func UserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// requireUser writes a 401 and returns false when the request carries no
// user identity.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := UserID(r)
	if id == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return "", false
	}
	return id, true
}

// intQuery parses a non-negative integer query parameter, 0 when absent or
// malformed.
func intQuery(q url.Values, key string) int {
	v := q.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
