package binder

import (
	"fmt"
	"reflect"
	"sync"
)

// typeKey uniquely identifies a binding by its service type and context key.
// The context key is empty for default bindings, the name for named
// contexts, and a '#'-prefixed marker for parameter and property contexts.
type typeKey struct {
	typ  reflect.Type
	name string
}

// String returns a human-readable representation of the type key
func (k typeKey) String() string {
	typeName := "<nil>"
	if k.typ != nil {
		typeName = k.typ.String()
	}
	if k.name == "" {
		return typeName
	}
	return fmt.Sprintf("%s[name=%s]", typeName, k.name)
}

// typeRegistration holds one binding pushed into the container
type typeRegistration struct {
	id          int
	key         typeKey
	context     BindContext
	target      BindTarget
	scope       ResolutionScope
	fields      []fieldInfo // type targets only
	instance    any
	constructed bool
	mu          sync.Mutex
}

// typeRegistry indexes the bindings of a container.
type typeRegistry struct {
	services    map[typeKey]*typeRegistration
	conditional map[reflect.Type][]*typeRegistration // parameter and property contexts
	collections map[reflect.Type][]*typeRegistration
	order       []*typeRegistration
	mu          sync.RWMutex
}

// newTypeRegistry creates a new type registry
func newTypeRegistry() *typeRegistry {
	return &typeRegistry{
		services:    make(map[typeKey]*typeRegistration),
		conditional: make(map[reflect.Type][]*typeRegistration),
		collections: make(map[reflect.Type][]*typeRegistration),
	}
}

// newTypeRegistration analyzes a binding for activation.
func newTypeRegistration(key typeKey, ctx BindContext) (*typeRegistration, error) {
	reg := &typeRegistration{
		key:     key,
		context: ctx,
		target:  ctx.Target(),
		scope:   ctx.Scope(),
	}

	if reg.target.Kind() == TargetType {
		fields, err := analyzeFields(reg.target.ImplementationType())
		if err != nil {
			return nil, err
		}
		reg.fields = fields
	}

	return reg, nil
}

// register adds a default or named binding
func (r *typeRegistry) register(reg *typeRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[reg.key]; exists {
		return ErrDuplicate(reg.key.typ)
	}

	reg.id = len(r.order)
	r.services[reg.key] = reg
	r.order = append(r.order, reg)

	return nil
}

// registerConditional adds a parameter or property binding
func (r *typeRegistry) registerConditional(reg *typeRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.conditional[reg.key.typ] {
		if existing.context.Kind() == reg.context.Kind() {
			return ErrConflicting(reg.key.typ, reg.context.Kind(), "")
		}
	}

	reg.id = len(r.order)
	r.conditional[reg.key.typ] = append(r.conditional[reg.key.typ], reg)
	r.order = append(r.order, reg)

	return nil
}

// registerCollection appends a collection entry
func (r *typeRegistry) registerCollection(reg *typeRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg.id = len(r.order)
	r.collections[reg.key.typ] = append(r.collections[reg.key.typ], reg)
	r.order = append(r.order, reg)
}

// get retrieves a registration by key
func (r *typeRegistry) get(key typeKey) (*typeRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.services[key]
	return reg, ok
}

// getDefault retrieves the default binding, falling back to the first collection entry
func (r *typeRegistry) getDefault(t reflect.Type) (*typeRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.services[typeKey{typ: t}]; ok {
		return reg, true
	}
	if entries := r.collections[t]; len(entries) > 0 {
		return entries[0], true
	}
	return nil, false
}

// getCollection returns all collection entries of a type
func (r *typeRegistry) getCollection(t reflect.Type) []*typeRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*typeRegistration(nil), r.collections[t]...)
}

// matchParameter finds a parameter context applying to d
func (r *typeRegistry) matchParameter(d ParameterDescriptor) (*typeRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.conditional[d.Type] {
		if reg.context.MatchParameter(d) {
			return reg, true
		}
	}
	return nil, false
}

// matchProperty finds a property context applying to d
func (r *typeRegistry) matchProperty(d PropertyDescriptor) (*typeRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.conditional[d.Type] {
		if reg.context.MatchProperty(d) {
			return reg, true
		}
	}
	return nil, false
}

// all returns every registration in registration order
func (r *typeRegistry) all() []*typeRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*typeRegistration(nil), r.order...)
}
