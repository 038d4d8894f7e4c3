package modules

import (
	"fmt"

	"github.com/blockberries/hostberry/store"
)

// Router holds the modules in their fixed block-boundary order and routes
// messages and queries to them. The route table is built once at
// construction; message types are closed at compile time, so an unknown
// type URL is an UNROUTABLE transaction error, never a lookup miss that
// silently falls through.
type Router struct {
	ordered []Module
	byType  map[string]Module
	byName  map[store.Identifier]Module
}

// NewRouter builds a router over the given modules. The argument order fixes
// the begin-block call order. Construction fails on overlapping store
// prefixes or message domains.
func NewRouter(mods ...Module) (*Router, error) {
	r := &Router{
		ordered: mods,
		byType:  make(map[string]Module),
		byName:  make(map[store.Identifier]Module),
	}
	for _, m := range mods {
		name := m.Name()
		if err := name.Validate(); err != nil {
			return nil, fmt.Errorf("module prefix: %w", err)
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("duplicate module prefix %q", name)
		}
		r.byName[name] = m

		for _, url := range m.MessageTypes() {
			if prev, ok := r.byType[url]; ok {
				return nil, fmt.Errorf("message type %s claimed by both %q and %q", url, prev.Name(), name)
			}
			r.byType[url] = m
		}
	}
	return r, nil
}

// Route returns the module owning the given message type URL.
func (r *Router) Route(typeURL string) (Module, bool) {
	m, ok := r.byType[typeURL]
	return m, ok
}

// ByName returns the module with the given store prefix.
func (r *Router) ByName(name store.Identifier) (Module, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Modules returns the modules in block-boundary order.
func (r *Router) Modules() []Module {
	return r.ordered
}
