// Package routes registers the admin API operations.
package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	appmiddleware "github.com/janisto/hello-fixture/internal/middleware"
	"github.com/janisto/hello-fixture/internal/server"
)

// Target is the application server the admin API reports on.
type Target interface {
	State() server.State
	Addr() string
	Requests() uint64
}

// Register wires all admin routes into api.
func Register(api huma.API, name, version string, target Target) {
	registerHealth(api, target)
	registerInfo(api, name, version, target)
}

// HealthData models the health payload.
type HealthData struct {
	Message string `json:"message" doc:"Health status message" example:"healthy"`
}

// HealthOutput is the response wrapper for the health endpoint.
type HealthOutput struct {
	Body HealthData
}

func registerHealth(api huma.API, target Target) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Report whether the application port is serving",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		if state := target.State(); state != server.Serving {
			appmiddleware.LogWarn(ctx, "health check failed", zap.Stringer("state", state))
			return nil, huma.Error503ServiceUnavailable("application server is " + state.String())
		}
		return &HealthOutput{Body: HealthData{Message: "healthy"}}, nil
	})
}

// InfoData describes the running fixture.
type InfoData struct {
	Name     string `json:"name" doc:"Application name" example:"hello-fixture"`
	Version  string `json:"version" doc:"Build version" example:"1.2.3"`
	Addr     string `json:"addr" doc:"Bound application address" example:"0.0.0.0:3000"`
	State    string `json:"state" doc:"Application server state" enum:"initializing,serving,stopped"`
	Requests uint64 `json:"requests" doc:"Requests received on the application port" example:"42"`
}

// InfoOutput is the response wrapper for the info endpoint.
type InfoOutput struct {
	Body InfoData
}

func registerInfo(api huma.API, name, version string, target Target) {
	huma.Register(api, huma.Operation{
		OperationID: "get-info",
		Method:      http.MethodGet,
		Path:        "/info",
		Summary:     "Describe the application server",
	}, func(ctx context.Context, _ *struct{}) (*InfoOutput, error) {
		return &InfoOutput{Body: InfoData{
			Name:     name,
			Version:  version,
			Addr:     target.Addr(),
			State:    target.State().String(),
			Requests: target.Requests(),
		}}, nil
	})
}
