package binder

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Lazy wraps a dependency that is resolved on first access.
// This is useful for breaking circular dependencies or deferring
// resolution of expensive services until they're actually needed.
type Lazy[T any] struct {
	resolver Resolver
	name     string
	once     sync.Once
	value    T
	err      error
	resolved atomic.Bool
}

// NewLazy creates a lazy wrapper for the default binding of T.
func NewLazy[T any](resolver Resolver) *Lazy[T] {
	return &Lazy[T]{resolver: resolver}
}

// NewNamedLazy creates a lazy wrapper for the Named context name of T.
func NewNamedLazy[T any](resolver Resolver, name string) *Lazy[T] {
	return &Lazy[T]{resolver: resolver, name: name}
}

// Get resolves the dependency and returns it.
// The resolution happens only once; subsequent calls return the cached value.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		if l.name == "" {
			l.value, l.err = Resolve[T](l.resolver)
		} else {
			l.value, l.err = ResolveNamed[T](l.resolver, l.name)
		}
		l.resolved.Store(l.err == nil)
	})

	return l.value, l.err
}

// MustGet resolves the dependency and returns it, panicking on error.
func (l *Lazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("lazy dependency %s failed: %v", l.ServiceType(), err))
	}

	return value
}

// IsResolved returns true if the dependency has been resolved.
func (l *Lazy[T]) IsResolved() bool {
	return l.resolved.Load()
}

// ServiceType returns the type being resolved.
func (l *Lazy[T]) ServiceType() reflect.Type {
	return TypeOf[T]()
}

// Name returns the context name, empty for the default binding.
func (l *Lazy[T]) Name() string {
	return l.name
}

// Provider resolves a new instance on each access. For transient bindings
// each call returns a fresh instance.
type Provider[T any] struct {
	resolver Resolver
}

// NewProvider creates a new provider.
func NewProvider[T any](resolver Resolver) *Provider[T] {
	return &Provider[T]{resolver: resolver}
}

// Provide resolves and returns an instance of the dependency.
func (p *Provider[T]) Provide() (T, error) {
	return Resolve[T](p.resolver)
}

// MustProvide resolves and returns an instance, panicking on error.
func (p *Provider[T]) MustProvide() T {
	value, err := p.Provide()
	if err != nil {
		panic(fmt.Sprintf("provider %s failed: %v", TypeOf[T](), err))
	}

	return value
}
