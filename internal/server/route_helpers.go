package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/ternarybob/shiftlog/internal/handlers"
)

// MethodRouter maps HTTP methods to handlers
type MethodRouter map[string]http.HandlerFunc

// allowed lists the methods of m in a stable order for the Allow header
func (m MethodRouter) allowed() string {
	methods := make([]string, 0, len(m))
	for method := range m {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// RouteByMethod dispatches on r.Method and answers 405 with an Allow header otherwise
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	handler, ok := routes[r.Method]
	if !ok {
		w.Header().Set("Allow", routes.allowed())
		handlers.WriteError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
		return
	}
	handler(w, r)
}

// RouteResourceItem serves a single resource readable with GET and replaceable with PUT.
// A nil handler leaves that method unrouted.
func RouteResourceItem(w http.ResponseWriter, r *http.Request, get, put http.HandlerFunc) {
	routes := MethodRouter{}
	if get != nil {
		routes[http.MethodGet] = get
	}
	if put != nil {
		routes[http.MethodPut] = put
	}
	RouteByMethod(w, r, routes)
}
