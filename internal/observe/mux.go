package observe

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Multiplexer interface {
	Handle(pattern string, handler http.Handler)
	http.Handler
}

// Mux wraps a multiplexer so every registered route is served through the
// OTel HTTP handler, tagged with its route pattern.
type Mux struct {
	wrapped Multiplexer
}

func NewMux(wrapped Multiplexer) *Mux {
	return &Mux{
		wrapped: wrapped,
	}
}

func (mux *Mux) Handle(pattern string, handler http.Handler) {
	mux.wrapped.Handle(pattern, otelhttp.NewHandler(handler, RoutePattern(pattern)))
}

func (mux *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux.wrapped.ServeHTTP(w, r)
}

// RoutePattern strips the method prefix from a ServeMux pattern, leaving the
// path for use as a telemetry operation name.
func RoutePattern(pattern string) string {
	method, resource, hasMethod := strings.Cut(pattern, " ")
	if !hasMethod || method != strings.ToUpper(method) || method == "" {
		return pattern
	}
	return resource
}
