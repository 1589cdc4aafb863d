package routes

import "net/http"

// Route binds an HTTP method and a pattern relative to its group prefix.
// An empty Pattern serves the prefix itself.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Wrapper decorates a handler with its full registration pattern
// (e.g. "GET /claims/{id}").
type Wrapper func(pattern string, h http.HandlerFunc) http.HandlerFunc

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	RegisterWith(mux, nil, groups...)
}

// RegisterWith adds all routes from the given groups to the mux, passing
// each handler through wrap when it is non-nil.
func RegisterWith(mux *http.ServeMux, wrap Wrapper, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, wrap, "", group)
	}
}

// Patterns returns the full registration patterns of the given groups in
// declaration order.
func Patterns(groups ...Group) []string {
	var out []string
	for _, group := range groups {
		walk("", group, func(pattern string, _ Route) {
			out = append(out, pattern)
		})
	}
	return out
}

func registerGroup(mux *http.ServeMux, wrap Wrapper, parentPrefix string, group Group) {
	walk(parentPrefix, group, func(pattern string, route Route) {
		handler := route.Handler
		if wrap != nil {
			handler = wrap(pattern, handler)
		}
		mux.HandleFunc(pattern, handler)
	})
}

func walk(parentPrefix string, group Group, fn func(pattern string, route Route)) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		fn(route.Method+" "+fullPrefix+route.Pattern, route)
	}
	for _, child := range group.Children {
		walk(fullPrefix, child, fn)
	}
}
