package binder

import (
	"reflect"

	"go.uber.org/zap"
)

// Locator resolves raw instances. Both the container and its scopes are
// locators; factories reach them through a Resolver view.
type Locator interface {
	// Resolve returns the default binding of serviceType, or its first
	// collection entry when it has no default binding.
	Resolve(serviceType reflect.Type) (any, error)

	// ResolveNamed returns the Named context name of serviceType.
	ResolveNamed(serviceType reflect.Type, name string) (any, error)

	// ResolveAll returns the collection entries of serviceType in
	// registration order, or an empty slice.
	ResolveAll(serviceType reflect.Type) ([]any, error)

	// BeginScope opens a nested scope.
	BeginScope(scope ResolutionScope) (ScopedLocator, error)
}

// ScopedLocator is a Locator caching scoped instances until End.
type ScopedLocator interface {
	Locator

	// Kind returns the scope the locator was begun with.
	Kind() ResolutionScope

	// End disposes scoped instances. A second End returns ErrScopeEnded.
	End() error
}

// Container is the integration the registrar pushes the manifest into. It
// owns activation and lifetimes; the registrar and resolver only decide what
// is bound and how it is wrapped.
type Container interface {
	Locator

	RegisterType(serviceType, implType reflect.Type, scope ResolutionScope) error
	RegisterFactory(serviceType reflect.Type, target BindTarget, scope ResolutionScope) error
	RegisterCollectionEntry(serviceType reflect.Type, target BindTarget, scope ResolutionScope) error

	// RegisterContext adds a Named, Parameter or Property context.
	RegisterContext(serviceType reflect.Type, context BindContext) error

	// Verify checks the dependency graph and locks registration.
	Verify() error

	// Dispose releases singletons. Calling it again is a no-op.
	Dispose() error
}

// ContainerConfig wires a container to the resolver that drives it.
type ContainerConfig struct {
	Logger     *zap.Logger
	Middleware []Middleware

	// Resolver builds the Resolver handed to factories for a locator.
	Resolver func(l Locator) Resolver

	// Decorate post-processes instances injected into fields and parameters.
	Decorate func(serviceType reflect.Type, instance any) (any, error)
}

// ContainerFactory creates a fresh container per BuildResolver attempt.
type ContainerFactory func(cfg ContainerConfig) Container

// plainResolver exposes a locator as a Resolver without interception.
type plainResolver struct {
	Locator
}

func (p plainResolver) BeginScope(scope ResolutionScope) (ScopedResolver, error) {
	s, err := p.Locator.BeginScope(scope)
	if err != nil {
		return nil, err
	}
	return plainScopedResolver{plainResolver{s}, s}, nil
}

func (plainResolver) Manifest() *Manifest { return nil }

func (plainResolver) Dispose() error { return nil }

type plainScopedResolver struct {
	plainResolver
	scope ScopedLocator
}

func (p plainScopedResolver) End() error { return p.scope.End() }
