// Package admin builds the optional operator API served on ADMIN_PORT.
package admin

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
	"github.com/janisto/hello-fixture/internal/respond"
	"github.com/janisto/hello-fixture/internal/routes"
)

// DocsPath serves the interactive API reference.
const DocsPath = "/api-docs"

// NewHandler returns the admin router for target.
func NewHandler(name, version string, target routes.Target) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler(respond.Problem))
	router.MethodNotAllowed(respond.MethodNotAllowedHandler(respond.Problem))

	router.Use(
		appmiddleware.Security(DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For; the admin port is meant for a trusted network.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<10),
		appmiddleware.RequestLogger(),
		appmiddleware.AccessLogger(),
		respond.Recoverer(respond.Problem),
	)

	cfg := huma.DefaultConfig(name+" admin", version)
	cfg.DocsPath = DocsPath
	api := humachi.New(router, cfg)
	advertiseCBOR(api)

	routes.Register(api, name, version, target)
	return router
}

// advertiseCBOR lists application/cbor next to JSON in the OpenAPI document.
// The cbor format package registers the codec itself.
func advertiseCBOR(api huma.API) {
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)
}
