// Package router maps path prefixes to adapters.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/janisto/hello-fixture/internal/adapter"
	"github.com/janisto/hello-fixture/internal/respond"
)

var (
	// ErrDuplicatePrefix is returned when a prefix is registered twice.
	ErrDuplicatePrefix = errors.New("prefix already registered")
	// ErrInvalidPrefix is returned for prefixes that are not plain paths.
	ErrInvalidPrefix = errors.New("invalid prefix")
)

type mapping struct {
	prefix  string
	adapter adapter.Adapter
}

// Router holds prefix to adapter mappings. A request matches a prefix when
// its path equals the prefix or continues it after a "/"; the longest
// matching prefix wins. Requests that match nothing get a plain-text 404.
// Every method is dispatched, including extension methods such as PROPFIND
// that chi does not know, so the router never answers 405.
type Router struct {
	mappings []mapping
}

// New returns an empty Router.
func New() *Router {
	return &Router{}
}

// NormalizePrefix cleans prefix into the form Register stores: a leading
// slash, no trailing slash except for the root, "" meaning "/".
func NormalizePrefix(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if strings.ContainsAny(prefix, "*{}?#") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	return path.Clean("/" + prefix), nil
}

// Register maps prefix to a.
func (rt *Router) Register(prefix string, a adapter.Adapter) error {
	if a == nil {
		return fmt.Errorf("%w: nil adapter for %q", ErrInvalidPrefix, prefix)
	}
	p, err := NormalizePrefix(prefix)
	if err != nil {
		return err
	}
	for _, m := range rt.mappings {
		if m.prefix == p {
			return fmt.Errorf("%w: %s", ErrDuplicatePrefix, p)
		}
	}
	rt.mappings = append(rt.mappings, mapping{prefix: p, adapter: a})
	return nil
}

// Prefixes returns the registered prefixes, most specific first.
func (rt *Router) Prefixes() []string {
	out := make([]string, 0, len(rt.mappings))
	for _, m := range rt.mappings {
		out = append(out, m.prefix)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Match returns the prefix that would serve requestPath, or false.
func (rt *Router) Match(requestPath string) (string, bool) {
	if requestPath == "" {
		requestPath = "/"
	}
	for _, p := range rt.Prefixes() {
		if p == "/" || requestPath == p || strings.HasPrefix(requestPath, p+"/") {
			return p, true
		}
	}
	return "", false
}

// Handler builds the http.Handler for the current mappings. middleware runs
// for every request, matched or not, in the order given.
func (rt *Router) Handler(middleware ...func(http.Handler) http.Handler) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware...)
	mux.Use(routeAnyMethod)
	mux.NotFound(respond.NotFoundHandler(respond.Text))
	for _, m := range rt.mappings {
		mux.Mount(m.prefix, adapter.Handler(m.adapter))
	}
	return mux
}

// chiMethods are the methods chi routes natively.
var chiMethods = map[string]struct{}{
	http.MethodConnect: {},
	http.MethodDelete:  {},
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodOptions: {},
	http.MethodPatch:   {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodTrace:   {},
}

// routeAnyMethod routes methods chi does not know as GET. chi would answer
// them with 405 before reaching a mounted adapter; r.Method is left intact.
func routeAnyMethod(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := chiMethods[r.Method]; !ok {
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				rctx.RouteMethod = http.MethodGet
			}
		}
		next.ServeHTTP(w, r)
	})
}
