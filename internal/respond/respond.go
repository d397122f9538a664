package respond

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
)

const (
	contentTypeText    = "text/plain"
	contentTypeProblem = "application/problem+json"
)

// Writer renders an error response body for status with a human readable detail.
type Writer func(w http.ResponseWriter, r *http.Request, status int, detail string)

// Text writes detail as a text/plain body. The application port uses it so
// that every response it produces, errors included, is plain text.
func Text(w http.ResponseWriter, r *http.Request, status int, detail string) {
	logWithStatus(r, status, detail)
	w.Header().Set("Content-Type", contentTypeText)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(detail)); err != nil {
		appmiddleware.LogError(r.Context(), "failed to write response", err)
	}
}

// Problem writes an RFC 9457 problem document using huma's error model, so
// admin API errors look the same whether chi or huma produced them.
func Problem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	logWithStatus(r, status, detail)
	model := &huma.ErrorModel{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	w.Header().Set("Content-Type", contentTypeProblem)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(model); err != nil {
		appmiddleware.LogError(r.Context(), "failed to write problem", err)
	}
}

// NotFoundHandler answers requests that matched no route.
func NotFoundHandler(write Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		write(w, r, http.StatusNotFound, "Not Found: "+r.URL.Path)
	}
}

// MethodNotAllowedHandler answers 405 and advertises the methods chi would accept.
func MethodNotAllowedHandler(write Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		write(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}
}

// Recoverer converts panics into 500 responses rendered by write.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recoverer(write Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				appmiddleware.LogError(r.Context(), "panic recovered", fmt.Errorf("%v", rec),
					zap.ByteString("stack", debug.Stack()))
				write(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// allowedMethods asks chi's route tree which methods match the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}
	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.Path
	}
	if routePath == "" {
		routePath = "/"
	}

	var allowed []string
	for _, method := range []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	} {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

func logWithStatus(r *http.Request, status int, detail string) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("detail", detail),
	}
	switch {
	case status >= 500:
		appmiddleware.LogError(r.Context(), "request failed", nil, fields...)
	case status >= 400:
		appmiddleware.LogWarn(r.Context(), "request rejected", fields...)
	}
}
