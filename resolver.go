package binder

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"
)

// Resolver is the read side of the binder. It obtains instances from the
// container, pairs each with its registration, and wraps instances whose
// registration carries an interceptor profile in a proxy.
type Resolver interface {
	// Resolve returns the root binding of serviceType, or the first of its
	// collection bindings.
	Resolve(serviceType reflect.Type) (any, error)

	// ResolveNamed returns the Named context name of serviceType.
	ResolveNamed(serviceType reflect.Type, name string) (any, error)

	// ResolveAll returns every collection binding of serviceType in
	// registration order. A service bound nowhere is ErrServiceNotFound.
	ResolveAll(serviceType reflect.Type) ([]any, error)

	// BeginScope opens a scope holding DefaultScope or NamedScope instances.
	BeginScope(scope ResolutionScope) (ScopedResolver, error)

	// Manifest returns the frozen registrations.
	Manifest() *Manifest

	// Dispose releases the container. Calling it again is a no-op.
	Dispose() error
}

// ScopedResolver is a Resolver over an open scope.
type ScopedResolver interface {
	Resolver

	// End disposes the scope's instances.
	End() error
}

// resolverCore is shared by the root resolver and all of its views.
type resolverCore struct {
	manifest  *Manifest
	proxies   ProxyGenerator
	container Container
	logger    *zap.Logger
	disposed  atomic.Bool
}

// resolver is a Resolver over one locator: the container, a scope, or an
// in-flight resolution handed to a factory.
type resolver struct {
	core    *resolverCore
	locator Locator
	owner   bool // Only the root resolver disposes the container
}

// view builds the Resolver handed to factories and constructors.
func (core *resolverCore) view(l Locator) Resolver {
	return &resolver{core: core, locator: l}
}

func (r *resolver) Resolve(serviceType reflect.Type) (any, error) {
	if r.core.disposed.Load() {
		return nil, ErrResolverDisposed
	}

	instance, err := r.locator.Resolve(serviceType)
	if err != nil {
		return nil, err
	}

	info, err := r.core.registrationFor(serviceType)
	if err != nil {
		return nil, err
	}

	return r.core.wrap(info, instance)
}

func (r *resolver) ResolveNamed(serviceType reflect.Type, name string) (any, error) {
	if r.core.disposed.Load() {
		return nil, ErrResolverDisposed
	}

	instance, err := r.locator.ResolveNamed(serviceType, name)
	if err != nil {
		return nil, err
	}

	info, ok := r.core.manifest.RootRegistrationFor(serviceType)
	if !ok {
		return nil, r.core.integrity(serviceType, "named binding resolved without a root registration")
	}

	return r.core.wrap(info, instance)
}

func (r *resolver) ResolveAll(serviceType reflect.Type) ([]any, error) {
	if r.core.disposed.Load() {
		return nil, ErrResolverDisposed
	}

	infos, ok := r.core.manifest.CollectionRegistrationsFor(serviceType)
	if !ok {
		if _, root := r.core.manifest.RootRegistrationFor(serviceType); !root {
			return nil, ErrServiceNotFound(serviceType, "")
		}
	}

	instances, err := r.locator.ResolveAll(serviceType)
	if err != nil {
		return nil, err
	}

	if len(instances) != len(infos) {
		return nil, r.core.integrity(serviceType, "resolved instances and collection registrations differ in length")
	}

	out := make([]any, len(instances))
	for i, instance := range instances {
		wrapped, err := r.core.wrap(infos[i], instance)
		if err != nil {
			return nil, err
		}
		out[i] = wrapped
	}

	return out, nil
}

func (r *resolver) BeginScope(kind ResolutionScope) (ScopedResolver, error) {
	if r.core.disposed.Load() {
		return nil, ErrResolverDisposed
	}

	s, err := r.locator.BeginScope(kind)
	if err != nil {
		return nil, err
	}

	return &scopedResolver{resolver: resolver{core: r.core, locator: s}, scope: s}, nil
}

func (r *resolver) Manifest() *Manifest { return r.core.manifest }

// Dispose releases the container on the root resolver. Views and scoped
// resolvers do not own the container and return nil.
func (r *resolver) Dispose() error {
	if !r.owner {
		return nil
	}
	if !r.core.disposed.CompareAndSwap(false, true) {
		return nil
	}

	r.core.logger.Info("disposing resolver")

	return r.core.container.Dispose()
}

// scopedResolver resolves through an open scope.
type scopedResolver struct {
	resolver
	scope ScopedLocator
}

func (s *scopedResolver) End() error {
	return s.scope.End()
}

// Dispose ends the scope. Ending an already ended scope is a no-op here.
func (s *scopedResolver) Dispose() error {
	if err := s.scope.End(); err != nil && !IsLifecycleError(err) {
		return err
	}
	return nil
}

// registrationFor pairs a Resolve result with its registration.
func (core *resolverCore) registrationFor(serviceType reflect.Type) (Registration, error) {
	if info, ok := core.manifest.RootRegistrationFor(serviceType); ok {
		return info, nil
	}
	if infos, ok := core.manifest.CollectionRegistrationsFor(serviceType); ok && len(infos) > 0 {
		return infos[0], nil
	}
	return Registration{}, core.integrity(serviceType, "container resolved a service the manifest does not register")
}

// integrity logs and returns a container/manifest desync error.
func (core *resolverCore) integrity(serviceType reflect.Type, detail string) error {
	core.logger.Error("manifest registration mapping is invalid",
		zap.Stringer("service", serviceType),
		zap.String("detail", detail))
	return ErrInvalidMapping(serviceType, detail)
}

// wrap proxies instance when info carries interceptors.
func (core *resolverCore) wrap(info Registration, instance any) (any, error) {
	profile := info.Profile()
	if profile.IsEmpty() || instance == nil {
		return instance, nil
	}

	serviceType := info.ServiceType()
	if core.proxies == nil {
		return nil, ErrCannotProxy(serviceType, "no proxy generator configured")
	}

	if serviceType.Kind() == reflect.Interface {
		return core.proxies.CreateInterfaceProxyWithTarget(serviceType, nil, instance, profile.Interceptors())
	}
	return core.proxies.CreateClassProxyWithTarget(serviceType, nil, instance, profile.Interceptors())
}

// decorate wraps instances injected into fields and parameters.
func (core *resolverCore) decorate(serviceType reflect.Type, instance any) (any, error) {
	info, err := core.registrationFor(serviceType)
	if err != nil {
		return nil, err
	}
	wrapped, err := core.wrap(info, instance)
	if err != nil {
		return nil, err
	}
	if wrapped != nil && !reflect.TypeOf(wrapped).AssignableTo(serviceType) {
		return nil, ErrCannotProxy(serviceType, fmt.Sprintf("proxy %T cannot be injected where '%s' is required", wrapped, serviceType))
	}
	return wrapped, nil
}
