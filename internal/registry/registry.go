// Package registry implements the generic Resource Registry of spec §3/§4.2:
// a named, typed store with change notification, replacing the source's
// GenericResource inheritance hierarchy and managerTemplate<T> with
// composition (a Header embedded in every concrete resource) and a
// generic Registry[T] (spec §9 design notes).
package registry

// EventKind identifies which change fired a notification.
type EventKind int

const (
	Created EventKind = iota
	Changed
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered synchronously to subscribers of (name, kind).
type Event struct {
	Name string
	Kind EventKind
}

// Header is the shared state every GPU-backed resource embeds in place
// of the source's GenericResource base class: a unique name, a class
// tag, a readiness flag, and a lifetime-bound parameter map keyed by
// precomputed Key values.
type Header struct {
	Name   string
	Class  string
	Ready  bool
	Params map[Key]any
}

func NewHeader(name, class string) Header {
	return Header{Name: name, Class: class, Params: make(map[Key]any)}
}

func (h *Header) Param(k Key) (any, bool) {
	v, ok := h.Params[k]
	return v, ok
}

func (h *Header) SetParam(k Key, v any) {
	h.Params[k] = v
}

type subKey struct {
	name string
	kind EventKind
}

// Registry is the generic Registry<T> of spec §9: a map[string]*T plus a
// subscriber table. No mutex: per spec §5, host registry state is only
// ever touched from the scheduler thread.
type Registry[T any] struct {
	items       map[string]*T
	subscribers map[subKey]map[Token]func(Event)
	nextToken   Token
	headerOf    func(*T) *Header
}

// NewRegistry builds a Registry for resource type T. headerOf must
// return the embedded *Header of a *T so the registry can read/flip
// Ready without every caller needing a type switch.
func NewRegistry[T any](headerOf func(*T) *Header) *Registry[T] {
	return &Registry[T]{
		items:       make(map[string]*T),
		subscribers: make(map[subKey]map[Token]func(Event)),
		headerOf:    headerOf,
	}
}

// Exists reports whether name is present, regardless of Ready.
func (r *Registry[T]) Exists(name string) bool {
	_, ok := r.items[name]
	return ok
}

// Get returns the resource for name if present and ready. Per spec §3,
// "a resource is observable only while ready == true" — this is the
// recoverable-error path of §7: callers get (nil, false), never a panic.
func (r *Registry[T]) Get(name string) (*T, bool) {
	v, ok := r.items[name]
	if !ok || !r.headerOf(v).Ready {
		return nil, false
	}
	return v, true
}

// Build returns the existing resource if name is already present
// (build on an existing name is a no-op per spec §4.2), otherwise
// stores build() under name, marks it ready, and fires Created.
func (r *Registry[T]) Build(name string, build func() *T) *T {
	if existing, ok := r.items[name]; ok {
		return existing
	}
	v := build()
	h := r.headerOf(v)
	h.Name = name
	h.Ready = true
	r.items[name] = v
	r.notify(name, Created)
	return v
}

// Resize flips Ready false, runs mutate, flips Ready true and always
// fires Changed — resize is unconditionally destructive per spec §4.2,
// even if mutate leaves the content effectively unchanged.
func (r *Registry[T]) Resize(name string, mutate func(*T)) bool {
	v, ok := r.items[name]
	if !ok {
		return false
	}
	h := r.headerOf(v)
	h.Ready = false
	mutate(v)
	h.Ready = true
	r.notify(name, Changed)
	return true
}

// Remove deletes name and fires Removed. No-op if absent.
func (r *Registry[T]) Remove(name string) {
	if _, ok := r.items[name]; !ok {
		return
	}
	delete(r.items, name)
	r.notify(name, Removed)
}

// ForEach visits every stored resource in unspecified order.
func (r *Registry[T]) ForEach(fn func(name string, v *T)) {
	for name, v := range r.items {
		fn(name, v)
	}
}

// Subscribe registers fn for (name, kind). Returns a Token usable with
// Unsubscribe. Handlers triggering further Build/Resize calls is
// explicitly supported (spec §4.2: "the scheduler tolerates re-entrancy").
func (r *Registry[T]) Subscribe(name string, kind EventKind, fn func(Event)) Token {
	key := subKey{name, kind}
	if r.subscribers[key] == nil {
		r.subscribers[key] = make(map[Token]func(Event))
	}
	tok := r.nextToken
	r.nextToken++
	r.subscribers[key][tok] = fn
	return tok
}

// Unsubscribe removes a previously registered callback for (name, kind).
func (r *Registry[T]) Unsubscribe(name string, kind EventKind, tok Token) {
	delete(r.subscribers[subKey{name, kind}], tok)
}

func (r *Registry[T]) notify(name string, kind EventKind) {
	key := subKey{name, kind}
	for _, fn := range r.subscribers[key] {
		fn(Event{Name: name, Kind: kind})
	}
}
