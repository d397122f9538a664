// Package adapter holds the unit of application logic: something that turns an
// inbound request into a status, headers and body.
package adapter

import (
	"net/http"
)

//go:generate mockgen -destination=../mock/adapter/adapter.go -package=mock_adapter . Adapter

// HelloBody is the body served by the fixture adapter.
const HelloBody = "Hello world!"

// Response is the triple an Adapter produces. Body chunks are written in order.
type Response struct {
	Status int
	Header http.Header
	Body   []string
}

// Adapter converts a request into a Response. Implementations must be safe
// for concurrent use; net/http calls them from one goroutine per connection.
type Adapter interface {
	Handle(r *http.Request) Response
}

// Func lets an ordinary function act as an Adapter.
type Func func(r *http.Request) Response

// Handle calls f(r).
func (f Func) Handle(r *http.Request) Response {
	return f(r)
}

type static struct {
	status int
	header http.Header
	body   []string
}

// Static returns an Adapter that ignores the request and always answers with
// the given status, headers and body. The arguments are copied.
func Static(status int, header http.Header, body ...string) Adapter {
	return &static{
		status: status,
		header: header.Clone(),
		body:   append([]string(nil), body...),
	}
}

// Handle returns a fresh copy of the configured response.
func (s *static) Handle(*http.Request) Response {
	return Response{
		Status: s.status,
		Header: s.header.Clone(),
		Body:   append([]string(nil), s.body...),
	}
}

// Hello returns the fixture adapter: 200, Content-Type text/plain, "Hello world!".
func Hello() Adapter {
	return Static(http.StatusOK, http.Header{"Content-Type": {"text/plain"}}, HelloBody)
}
