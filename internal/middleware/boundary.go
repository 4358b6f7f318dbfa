package middleware

import (
	"bufio"
	"io"
	"net/http"
	"slices"
	"strings"
)

// CacheControl is set on every response that passes the boundary checks.
const CacheControl = "no-cache, no-store, must-revalidate"

// Rule constrains requests under a path prefix.
type Rule struct {
	// Prefix matches the path itself and everything below it.
	Prefix string
	// Methods lists the accepted methods. Anything else is 405.
	Methods []string
	// NoBody lists methods that must arrive without a body. Empty means all methods.
	NoBody []string
}

func (r Rule) matches(path string) bool {
	prefix := strings.TrimSuffix(r.Prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (r Rule) forbidsBody(method string) bool {
	return len(r.NoBody) == 0 || slices.Contains(r.NoBody, method)
}

// Boundary rejects requests that break the first matching rule, in order:
// a body where none is allowed (400), any query string (400), an unlisted
// method (405). Rejections carry no body. Requests matching no rule pass
// through untouched.
func Boundary(rules ...Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idx := slices.IndexFunc(rules, func(rule Rule) bool { return rule.matches(r.URL.Path) })
			if idx < 0 {
				next.ServeHTTP(w, r)
				return
			}
			rule := rules[idx]

			if rule.forbidsBody(r.Method) && hasBody(r) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.URL.RawQuery != "" || r.URL.ForceQuery {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if !slices.Contains(rule.Methods, r.Method) {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}

			w.Header().Set("Cache-Control", CacheControl)
			next.ServeHTTP(w, r)
		})
	}
}

// hasBody reports whether r carries at least one body byte. Bodies of unknown
// length are peeked; the peeked byte stays readable downstream.
func hasBody(r *http.Request) bool {
	if r.ContentLength > 0 {
		return true
	}
	if r.ContentLength == 0 || r.Body == nil || r.Body == http.NoBody {
		return false
	}

	br := bufio.NewReader(r.Body)
	_, err := br.Peek(1)
	r.Body = struct {
		io.Reader
		io.Closer
	}{br, r.Body}
	return err == nil
}
