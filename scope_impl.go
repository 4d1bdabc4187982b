package binder

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
)

// scope implements ScopedLocator.
type scope struct {
	container *containerImpl
	parent    *scope
	kind      ResolutionScope
	instances map[int]any
	order     []*typeRegistration
	mu        sync.Mutex
	ended     bool
}

// newScope creates a new scope.
func newScope(c *containerImpl, parent *scope, kind ResolutionScope) *scope {
	return &scope{
		container: c,
		parent:    parent,
		kind:      kind,
		instances: make(map[int]any),
	}
}

// Kind implements ScopedLocator.
func (s *scope) Kind() ResolutionScope { return s.kind }

func (s *scope) resolution() (*resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrScopeEnded
	}
	return &resolution{c: s.container, scope: s}, nil
}

// Resolve implements Locator.
func (s *scope) Resolve(serviceType reflect.Type) (any, error) {
	r, err := s.resolution()
	if err != nil {
		return nil, err
	}
	return r.Resolve(serviceType)
}

// ResolveNamed implements Locator.
func (s *scope) ResolveNamed(serviceType reflect.Type, name string) (any, error) {
	r, err := s.resolution()
	if err != nil {
		return nil, err
	}
	return r.ResolveNamed(serviceType, name)
}

// ResolveAll implements Locator.
func (s *scope) ResolveAll(serviceType reflect.Type) ([]any, error) {
	r, err := s.resolution()
	if err != nil {
		return nil, err
	}
	return r.ResolveAll(serviceType)
}

// BeginScope opens a child scope.
func (s *scope) BeginScope(kind ResolutionScope) (ScopedLocator, error) {
	if !kind.IsScoped() {
		return nil, errInvalidArgument("scope", fmt.Sprintf("'%s' is not a scope kind", kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, ErrScopeEnded
	}
	return newScope(s.container, s, kind), nil
}

// find returns the nearest scope able to hold instances of kind.
func (s *scope) find(kind ResolutionScope) *scope {
	for cur := s; cur != nil; cur = cur.parent {
		if kind.matches(cur.kind) {
			return cur
		}
	}
	return nil
}

// cached returns the instance of reg held by this scope.
func (s *scope) cached(reg *typeRegistration) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, false, ErrScopeEnded
	}
	instance, ok := s.instances[reg.id]
	return instance, ok, nil
}

// store keeps instance unless another resolution stored one first, in which
// case that one wins and is returned. kept reports whether instance was stored.
func (s *scope) store(reg *typeRegistration, instance any) (stored any, kept bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return nil, false, ErrScopeEnded
	}
	if existing, ok := s.instances[reg.id]; ok {
		return existing, false, nil
	}

	s.instances[reg.id] = instance
	s.order = append(s.order, reg)

	return instance, true, nil
}

// End disposes of scoped instances in reverse creation order.
func (s *scope) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return ErrScopeEnded
	}

	var err error

	for i := len(s.order) - 1; i >= 0; i-- {
		reg := s.order[i]
		if disposeErr := disposeInstance(s.instances[reg.id]); disposeErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to dispose %s: %w", reg.key, disposeErr))
		}
	}

	s.instances = nil
	s.order = nil
	s.ended = true

	return err
}
