package server

import (
	"net/http"
	"slices"
	"sort"
	"strings"
)

// BasicRouter dispatches "METHOD /path" patterns through an [http.ServeMux].
//
// Requests that match no route get a JSON 404, and requests for a known path with another
// method get a JSON 405 carrying an Allow header. Both still pass through the middleware.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	methods     map[string][]string
	fallback    http.Handler
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	r := &BasicRouter{
		mux:     http.NewServeMux(),
		methods: make(map[string][]string),
	}
	r.fallback = http.HandlerFunc(r.unmatched)
	return r
}

// Use appends middleware. The first one added runs outermost.
//
// Middleware must be added before routes are registered.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method and path, wrapped with the middleware stack.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.register(strings.ToUpper(method), path, r.Apply(handler))
}

// Handler registers every pattern returned by [Handler.Routes] with one wrapped handler.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		method, path, _ := strings.Cut(route, " ")
		r.register(method, path, wrapped)
	}
}

// Routes lists registered patterns in sorted order.
func (r *BasicRouter) Routes() []string {
	var routes []string
	for path, methods := range r.methods {
		for _, m := range methods {
			routes = append(routes, m+" "+path)
		}
	}
	sort.Strings(routes)
	return routes
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		r.Apply(r.fallback).ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the middleware stack.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	return handler
}

func (r *BasicRouter) register(method, path string, handler http.Handler) {
	r.mux.Handle(method+" "+path, handler)
	if !slices.Contains(r.methods[path], method) {
		r.methods[path] = append(r.methods[path], method)
	}
}

func (r *BasicRouter) unmatched(w http.ResponseWriter, req *http.Request) {
	allowed, ok := r.methods[req.URL.Path]
	if !ok {
		writeError(w, http.StatusNotFound, "no route for "+req.URL.Path)
		return
	}
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, req.Method+" not allowed on "+req.URL.Path)
}
