// Package nav is the client-side view router: a navigator that tracks
// the current path and an ordered prefix-match route table.
package nav

import (
	"strings"
	"sync"
)

// Navigator holds the current path and notifies subscribers on change.
type Navigator struct {
	mu          sync.Mutex
	current     string
	subscribers []func(path string)
}

func NewNavigator(initial string) *Navigator {
	return &Navigator{current: initial}
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Subscribe registers a listener called on every navigation, including
// navigations to the path already shown.
func (n *Navigator) Subscribe(fn func(path string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, fn)
}

func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.current = path
	listeners := make([]func(string), len(n.subscribers))
	copy(listeners, n.subscribers)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(path)
	}
}

// Route maps a path prefix to a named view.
type Route struct {
	Prefix string
	View   string
}

// Router resolves paths against its routes in registration order: the
// first prefix that matches wins, so more specific prefixes must be
// registered before shorter ones that contain them.
type Router struct {
	routes      []Route
	defaultView string
}

func NewRouter(defaultView string) *Router {
	return &Router{defaultView: defaultView}
}

func (r *Router) Handle(prefix, view string) {
	r.routes = append(r.routes, Route{Prefix: prefix, View: view})
}

func (r *Router) Resolve(path string) string {
	for _, route := range r.routes {
		if strings.HasPrefix(path, route.Prefix) {
			return route.View
		}
	}
	return r.defaultView
}

// DashboardPath maps a signed-in role to its landing view.
func DashboardPath(userType string) string {
	switch userType {
	case "faculty":
		return "/faculty-dashboard"
	case "department_head":
		return "/depthead-dashboard"
	default:
		return "/dashboard"
	}
}

// DefaultRouter is the application route table.
func DefaultRouter() *Router {
	router := NewRouter("login")
	router.Handle("/about", "about")
	router.Handle("/contact", "contact")
	router.Handle("/faculty-dashboard", "faculty-dashboard")
	router.Handle("/depthead-dashboard", "depthead-dashboard")
	router.Handle("/dashboard", "student-dashboard")
	return router
}
