// Package hello serves the fixture response as an HTTP Cloud Function, for
// harnesses that deploy functions instead of long-running containers.
package hello

import (
	"net/http"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

// Body is the exact response body, with no trailing newline.
const Body = "Hello world!"

func init() {
	functions.HTTP("Hello", helloHandler)
}

func helloHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(Body))
}
