package router

import "context"

// HandlerFunc is one registered handler body. The event and everything a
// handler needs arrive as explicit parameters; there is no ambient state.
type HandlerFunc func(ctx context.Context, ev *Event)

// Handler pairs a predicate with its handler body.
type Handler struct {
	// Name identifies the handler in logs.
	Name      string
	Predicate Predicate
	Func      HandlerFunc

	// Background dispatches the handler to the worker pool so slow network
	// calls do not block ingestion of subsequent events.
	Background bool
}

// Group is an ordered set of handlers sharing one priority slot. Groups are
// evaluated in registration order.
type Group struct {
	Name string

	// CatchAll marks the group as mutually exclusive with everything before
	// it: the group is skipped when any lower group already matched the
	// event.
	CatchAll bool

	handlers []Handler
}

// Handle registers a foreground handler.
func (g *Group) Handle(name string, pred Predicate, fn HandlerFunc) {
	g.handlers = append(g.handlers, Handler{Name: name, Predicate: pred, Func: fn})
}

// HandleBackground registers a handler whose side effects run on the worker
// pool.
func (g *Group) HandleBackground(name string, pred Predicate, fn HandlerFunc) {
	g.handlers = append(g.handlers, Handler{Name: name, Predicate: pred, Func: fn, Background: true})
}

// Registry is the process-wide handler table. It is built once at startup by
// explicit registration calls from a fixed list of feature modules and never
// mutated afterwards.
type Registry struct {
	groups []*Group
}

// NewRegistry returns an empty handler table.
func NewRegistry() *Registry {
	return &Registry{}
}

// Group appends a new priority group. Lower (earlier) groups are evaluated
// first.
func (r *Registry) Group(name string) *Group {
	g := &Group{Name: name}
	r.groups = append(r.groups, g)
	return g
}

// CatchAllGroup appends a group that only runs when no lower group matched.
func (r *Registry) CatchAllGroup(name string) *Group {
	g := &Group{Name: name, CatchAll: true}
	r.groups = append(r.groups, g)
	return g
}

// Groups returns the groups in evaluation order.
func (r *Registry) Groups() []*Group {
	return r.groups
}
