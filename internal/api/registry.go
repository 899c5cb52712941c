package api

import (
	"fmt"
	"net/http"
	"sort"
)

// Route is the method and path an endpoint is mounted on.
type Route struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	RequiresInit bool   `json:"requires_init"`
}

// Pattern is the ServeMux pattern for the route.
func (r Route) Pattern() string { return r.Method + " " + r.Path }

// Registry holds the endpoints served by one mux. Each method and path pair
// may be registered once.
type Registry struct {
	endpoints []Endpoint
	patterns  map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{patterns: make(map[string]bool)}
}

// Register adds an endpoint, rejecting a second endpoint on the same route.
func (r *Registry) Register(ep Endpoint) error {
	route := routeOf(ep)
	if r.patterns[route.Pattern()] {
		return fmt.Errorf("duplicate route %s", route.Pattern())
	}
	r.patterns[route.Pattern()] = true
	r.endpoints = append(r.endpoints, ep)
	return nil
}

// RegisterRoutes mounts every endpoint on mux. Handlers of endpoints that
// need the pipeline are wrapped with initMiddleware.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// Endpoints returns endpoints in registration order.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}

// Routes returns the registered routes sorted by path, then method.
func (r *Registry) Routes() []Route {
	routes := make([]Route, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		routes = append(routes, routeOf(ep))
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

func routeOf(ep Endpoint) Route {
	method, path, _ := ep.Route()
	return Route{Method: method, Path: path, RequiresInit: ep.RequiresInit()}
}
