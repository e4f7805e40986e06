package navserver

import (
	"net/http"

	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/router"
)

// ResolutionView is the JSON form of a router.Resolution.
type ResolutionView struct {
	Requested string            `json:"requested"`
	Location  string            `json:"location"`
	Path      string            `json:"path,omitempty"`
	Query     map[string]string `json:"query,omitempty"`
	Redirects []string          `json:"redirects,omitempty"`
	Stack     []EntryView       `json:"stack,omitempty"`
	Pages     []router.Page     `json:"pages"`
	CanPop    bool              `json:"canPop"`
	Fault     *FaultView        `json:"fault,omitempty"`
}

// EntryView is one resolved stack entry.
type EntryView struct {
	Route    string            `json:"route,omitempty"`
	Template string            `json:"template"`
	Location string            `json:"location"`
	Params   map[string]string `json:"params,omitempty"`
}

// FaultView describes a failed resolution or lookup.
type FaultView struct {
	Code      string   `json:"code"`
	Kind      string   `json:"kind"`
	Message   string   `json:"message"`
	Detail    string   `json:"detail,omitempty"`
	Location  string   `json:"location,omitempty"`
	Redirects []string `json:"redirects,omitempty"`
}

// NewResolutionView converts res for the wire.
func NewResolutionView(res *router.Resolution) ResolutionView {
	if res == nil {
		return ResolutionView{Pages: []router.Page{}}
	}

	v := ResolutionView{
		Requested: res.Requested,
		Location:  res.Location,
		Path:      res.Path,
		Query:     res.Query,
		Redirects: res.Redirects,
		Pages:     res.Pages(),
		CanPop:    res.CanPop(),
		Fault:     NewFaultView(res.Fault),
	}
	if v.Pages == nil {
		v.Pages = []router.Page{}
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		v.Stack = append(v.Stack, EntryView{
			Route:    e.Name(),
			Template: e.Route.Path,
			Location: e.Prefix,
			Params:   e.Params,
		})
	}
	return v
}

// NewFaultView converts a router fault, or returns nil.
func NewFaultView(f *router.Fault) *FaultView {
	if f == nil {
		return nil
	}
	ne := errors.FromFault(f)
	return &FaultView{
		Code:      ne.Code,
		Kind:      f.Kind.String(),
		Message:   ne.Message,
		Detail:    ne.Detail,
		Location:  f.Location,
		Redirects: f.Redirects,
	}
}

// faultStatus maps a fault kind to an HTTP status.
func faultStatus(f *router.Fault) int {
	if f == nil {
		return http.StatusOK
	}
	switch f.Kind {
	case router.NotFoundFault:
		return http.StatusNotFound
	case router.InvalidLocationFault, router.NameLookupFault:
		return http.StatusBadRequest
	case router.RedirectLoopFault:
		return http.StatusLoopDetected
	default:
		return http.StatusInternalServerError
	}
}

// RouteView describes one route of the active tree.
type RouteView struct {
	Name     string `json:"name,omitempty"`
	Template string `json:"template"`
	Depth    int    `json:"depth"`
}

// NewRouteViews lists the routes of tree in declaration order.
func NewRouteViews(tree *router.Tree) []RouteView {
	views := make([]RouteView, 0, tree.Len())
	tree.Walk(func(c *router.CompiledRoute) {
		views = append(views, RouteView{
			Name:     c.Route.Name,
			Template: c.Template(),
			Depth:    c.Depth(),
		})
	})
	return views
}

// HistoryView is a navigator history snapshot.
type HistoryView struct {
	Locations []string `json:"locations"`
	Index     int      `json:"index"`
}

func newHistoryView(nav *router.Navigator) *HistoryView {
	entries, index := nav.History()
	v := &HistoryView{Locations: make([]string, len(entries)), Index: index}
	for i, e := range entries {
		v.Locations[i] = e.Location
	}
	return v
}
