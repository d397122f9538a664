package adapter

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
)

// Handler serves the adapter a through net/http. Headers are copied verbatim, so a
// Content-Type of "text/plain" is sent without a charset and the body is
// never sniffed. A zero status is sent as 200 OK.
func Handler(a Adapter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := a.Handle(r)
		Write(w, r, resp)
	})
}

// Write serializes resp onto w.
func Write(w http.ResponseWriter, r *http.Request, resp Response) {
	dst := w.Header()
	for key, values := range resp.Header {
		dst[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	if _, ok := dst["Content-Type"]; !ok {
		// An explicit empty value keeps net/http from sniffing the body.
		dst["Content-Type"] = nil
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	for _, chunk := range resp.Body {
		if _, err := io.WriteString(w, chunk); err != nil {
			appmiddleware.LogWarn(r.Context(), "response write aborted",
				zap.String("path", r.URL.Path), zap.Error(err))
			return
		}
	}
}
