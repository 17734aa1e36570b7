package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultAPIVersion is the path segment every resource is mounted under
const DefaultAPIVersion = "v1"

// Route is one method/path pair of a resource
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Resource is a named route table sharing a path prefix and middleware
type Resource struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Get appends a GET route
func (r *Resource) Get(path string, h gin.HandlerFunc) *Resource {
	return r.add(http.MethodGet, path, h)
}

// Post appends a POST route
func (r *Resource) Post(path string, h gin.HandlerFunc) *Resource {
	return r.add(http.MethodPost, path, h)
}

// Put appends a PUT route
func (r *Resource) Put(path string, h gin.HandlerFunc) *Resource {
	return r.add(http.MethodPut, path, h)
}

func (r *Resource) add(method, path string, h gin.HandlerFunc) *Resource {
	r.Routes = append(r.Routes, Route{Method: method, Path: path, Handler: h})
	return r
}

// mount registers the resource's routes below parent
func (r *Resource) mount(parent gin.IRouter) {
	g := parent.Group(r.Prefix, r.Middleware...)
	for _, route := range r.Routes {
		g.Handle(route.Method, route.Path, route.Handler)
	}
}

// API mounts resources under /api/<version>
type API struct {
	version   string
	resources []*Resource
}

// NewAPI creates an API; an empty version falls back to DefaultAPIVersion
func NewAPI(version string) *API {
	if version == "" {
		version = DefaultAPIVersion
	}
	return &API{version: version}
}

// Add queues resources for Mount. Nil entries are skipped.
func (a *API) Add(resources ...*Resource) *API {
	for _, r := range resources {
		if r != nil {
			a.resources = append(a.resources, r)
		}
	}
	return a
}

// BasePath returns the versioned prefix
func (a *API) BasePath() string {
	return "/api/" + a.version
}

// Mount registers every queued resource on the engine
func (a *API) Mount(engine *gin.Engine) {
	base := engine.Group(a.BasePath())
	for _, r := range a.resources {
		r.mount(base)
	}
}
