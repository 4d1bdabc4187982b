package binder

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/xraph/go-utils/di"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// containerImpl is the default Container.
type containerImpl struct {
	cfg        ContainerConfig
	registry   *typeRegistry
	middleware *middlewareChain
	logger     *zap.Logger
	singletons []*typeRegistration // In construction order, for disposal
	locked     bool
	disposed   bool
	mu         sync.RWMutex
}

// NewContainer creates the default container integration.
func NewContainer(cfg ContainerConfig) Container {
	return newContainerImpl(cfg)
}

func newContainerImpl(cfg ContainerConfig) *containerImpl {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = func(l Locator) Resolver { return plainResolver{l} }
	}
	return &containerImpl{
		cfg:        cfg,
		registry:   newTypeRegistry(),
		middleware: newMiddlewareChain(cfg.Middleware...),
		logger:     cfg.Logger.Named("container"),
	}
}

func (c *containerImpl) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return ErrResolverDisposed
	}
	if c.locked {
		return ErrRegistrationClosed
	}
	return nil
}

// RegisterType implements Container.
func (c *containerImpl) RegisterType(serviceType, implType reflect.Type, scope ResolutionScope) error {
	target, err := TypeTarget(implType)
	if err != nil {
		return err
	}
	return c.register(serviceType, target, scope)
}

// RegisterFactory implements Container.
func (c *containerImpl) RegisterFactory(serviceType reflect.Type, target BindTarget, scope ResolutionScope) error {
	switch target.Kind() {
	case TargetFactory, TargetConstructor:
		return c.register(serviceType, target, scope)
	case TargetType:
		return errInvalidArgument("target", "type targets are registered with RegisterType")
	default:
		return errNilArgument("target")
	}
}

func (c *containerImpl) register(serviceType reflect.Type, target BindTarget, scope ResolutionScope) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	ctx, err := DefaultContext(target, scope)
	if err != nil {
		return err
	}
	return c.RegisterContext(serviceType, ctx)
}

// RegisterCollectionEntry implements Container.
func (c *containerImpl) RegisterCollectionEntry(serviceType reflect.Type, target BindTarget, scope ResolutionScope) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if serviceType == nil {
		return errNilArgument("service type")
	}
	ctx, err := DefaultContext(target, scope)
	if err != nil {
		return err
	}
	if err := target.checkAssignable(serviceType); err != nil {
		return err
	}

	reg, err := newTypeRegistration(typeKey{typ: serviceType}, ctx)
	if err != nil {
		return err
	}
	c.registry.registerCollection(reg)

	c.logger.Debug("registered collection entry",
		zap.Stringer("service", serviceType),
		zap.Stringer("target", target),
		zap.Stringer("scope", scope))

	return nil
}

// RegisterContext implements Container.
func (c *containerImpl) RegisterContext(serviceType reflect.Type, bc BindContext) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if serviceType == nil {
		return errNilArgument("service type")
	}
	if bc.IsZero() {
		return errNilArgument("context")
	}
	if err := bc.Target().checkAssignable(serviceType); err != nil {
		return err
	}

	reg, err := newTypeRegistration(typeKey{typ: serviceType, name: bc.key()}, bc)
	if err != nil {
		return err
	}

	switch bc.Kind() {
	case ContextDefault, ContextNamed:
		err = c.registry.register(reg)
	case ContextParameter, ContextProperty:
		err = c.registry.registerConditional(reg)
	default:
		err = errNilArgument("context")
	}
	if err != nil {
		return err
	}

	c.logger.Debug("registered binding",
		zap.Stringer("key", reg.key),
		zap.Stringer("context", bc.Kind()),
		zap.Stringer("target", bc.Target()),
		zap.Stringer("scope", bc.Scope()))

	return nil
}

// Resolve implements Locator.
func (c *containerImpl) Resolve(serviceType reflect.Type) (any, error) {
	return c.root().Resolve(serviceType)
}

// ResolveNamed implements Locator.
func (c *containerImpl) ResolveNamed(serviceType reflect.Type, name string) (any, error) {
	return c.root().ResolveNamed(serviceType, name)
}

// ResolveAll implements Locator.
func (c *containerImpl) ResolveAll(serviceType reflect.Type) ([]any, error) {
	return c.root().ResolveAll(serviceType)
}

// BeginScope implements Locator.
func (c *containerImpl) BeginScope(kind ResolutionScope) (ScopedLocator, error) {
	c.mu.RLock()
	disposed := c.disposed
	c.mu.RUnlock()

	if disposed {
		return nil, ErrResolverDisposed
	}
	if !kind.IsScoped() {
		return nil, errInvalidArgument("scope", fmt.Sprintf("'%s' is not a scope kind", kind))
	}
	return newScope(c, nil, kind), nil
}

func (c *containerImpl) root() *resolution {
	return &resolution{c: c}
}

// Verify checks that every injection site of a type or constructor binding
// can be satisfied and that the static dependency graph is acyclic. On
// success the container stops accepting registrations.
func (c *containerImpl) Verify() error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	graph := NewDependencyGraph()

	for _, reg := range c.registry.all() {
		deps, err := c.staticDependencies(reg)
		if err != nil {
			return NewServiceError(reg.key.String(), "verify", err)
		}
		graph.AddNode(nodeName(reg), reg.key.String(), deps)
	}

	if _, err := graph.Sort(); err != nil {
		return err
	}

	c.mu.Lock()
	c.locked = true
	c.mu.Unlock()

	c.logger.Debug("container verified", zap.Int("bindings", len(c.registry.all())))

	return nil
}

func nodeName(reg *typeRegistration) string {
	return fmt.Sprintf("%s#%d", reg.key, reg.id)
}

// staticDependencies lists the graph nodes reg depends on.
func (c *containerImpl) staticDependencies(reg *typeRegistration) ([]string, error) {
	var deps []string

	switch reg.target.Kind() {
	case TargetType:
		for _, f := range reg.fields {
			found, err := c.staticProperty(f)
			if err != nil {
				return nil, err
			}
			deps = append(deps, found...)
		}
	case TargetConstructor:
		for _, p := range reg.target.constructor.params {
			found, err := c.staticParameter(p)
			if err != nil {
				return nil, err
			}
			deps = append(deps, found...)
		}
	case TargetFactory:
		// Factories resolve lazily; their dependencies are checked at run time.
	}

	return deps, nil
}

func (c *containerImpl) staticParameter(d ParameterDescriptor) ([]string, error) {
	if d.Type == resolverType {
		return nil, nil
	}
	if reg, ok := c.registry.matchParameter(d); ok {
		return []string{nodeName(reg)}, nil
	}
	return c.staticDefault(d.Type, false)
}

func (c *containerImpl) staticProperty(f fieldInfo) ([]string, error) {
	if f.desc.Type == resolverType {
		return nil, nil
	}
	if reg, ok := c.registry.matchProperty(f.desc); ok {
		return []string{nodeName(reg)}, nil
	}
	if f.name != "" {
		reg, ok := c.registry.get(typeKey{typ: f.desc.Type, name: f.name})
		if !ok {
			if f.optional {
				return nil, nil
			}
			return nil, ErrServiceNotFound(f.desc.Type, f.name)
		}
		return []string{nodeName(reg)}, nil
	}
	return c.staticDefault(f.desc.Type, f.optional)
}

func (c *containerImpl) staticDefault(t reflect.Type, optional bool) ([]string, error) {
	if reg, ok := c.registry.getDefault(t); ok {
		return []string{nodeName(reg)}, nil
	}
	if t.Kind() == reflect.Slice {
		var deps []string
		for _, reg := range c.registry.getCollection(t.Elem()) {
			deps = append(deps, nodeName(reg))
		}
		return deps, nil
	}
	if optional {
		return nil, nil
	}
	return nil, ErrServiceNotFound(t, "")
}

// Dispose releases singletons in reverse construction order. A di.Service
// is stopped first, then a di.Disposable is disposed or an io.Closer closed.
func (c *containerImpl) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	singletons := c.singletons
	c.singletons = nil
	c.mu.Unlock()

	var err error
	for i := len(singletons) - 1; i >= 0; i-- {
		reg := singletons[i]
		reg.mu.Lock()
		instance := reg.instance
		reg.instance = nil
		reg.mu.Unlock()

		if disposeErr := disposeInstance(instance); disposeErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to dispose %s: %w", reg.key, disposeErr))
		}
	}

	c.logger.Debug("container disposed", zap.Int("singletons", len(singletons)))

	return err
}

// startInstance starts cached instances that implement di.Service, so that
// disposal only stops what was started.
func startInstance(reg *typeRegistration, instance any) error {
	svc, ok := instance.(di.Service)
	if !ok {
		return nil
	}
	if err := svc.Start(context.Background()); err != nil {
		return NewServiceError(reg.key.String(), "start", err)
	}
	return nil
}

func disposeInstance(instance any) error {
	var err error

	if svc, ok := instance.(di.Service); ok {
		err = multierr.Append(err, svc.Stop(context.Background()))
	}

	switch v := instance.(type) {
	case di.Disposable:
		err = multierr.Append(err, v.Dispose())
	case io.Closer:
		err = multierr.Append(err, v.Close())
	}

	return err
}

func (c *containerImpl) isDisposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// resolution is one resolution request. It carries the chain of bindings
// being constructed for cycle detection and the scope it runs in, and is
// the Locator factories see while they build.
type resolution struct {
	c     *containerImpl
	scope *scope
	chain []typeKey
}

func (r *resolution) Resolve(serviceType reflect.Type) (any, error) {
	key := typeKey{typ: serviceType}
	return r.resolveKey(key, func() (*typeRegistration, bool) {
		return r.c.registry.getDefault(serviceType)
	})
}

func (r *resolution) ResolveNamed(serviceType reflect.Type, name string) (any, error) {
	if !contextNameRegexp.MatchString(name) {
		return nil, ErrInvalidName(name)
	}
	key := typeKey{typ: serviceType, name: name}
	return r.resolveKey(key, func() (*typeRegistration, bool) {
		return r.c.registry.get(key)
	})
}

func (r *resolution) ResolveAll(serviceType reflect.Type) ([]any, error) {
	if serviceType == nil {
		return nil, errNilArgument("service type")
	}
	if r.c.isDisposed() {
		return nil, ErrResolverDisposed
	}

	entries := r.c.registry.getCollection(serviceType)
	instances := make([]any, 0, len(entries))
	for _, reg := range entries {
		instance, err := r.instance(reg)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (r *resolution) BeginScope(kind ResolutionScope) (ScopedLocator, error) {
	if r.scope != nil {
		return r.scope.BeginScope(kind)
	}
	return r.c.BeginScope(kind)
}

// resolveKey runs middleware around a lookup.
func (r *resolution) resolveKey(key typeKey, lookup func() (*typeRegistration, bool)) (any, error) {
	if key.typ == nil {
		return nil, errNilArgument("service type")
	}
	if r.c.isDisposed() {
		return nil, ErrResolverDisposed
	}

	ctx := context.Background()
	name := key.String()

	if err := r.c.middleware.beforeResolve(ctx, name); err != nil {
		return nil, err
	}

	var (
		instance any
		err      error
	)
	if reg, ok := lookup(); ok {
		instance, err = r.instance(reg)
	} else {
		err = ErrServiceNotFound(key.typ, key.name)
	}

	if mwErr := r.c.middleware.afterResolve(ctx, name, instance, err); mwErr != nil {
		return nil, mwErr
	}

	return instance, err
}

// instance returns the instance of reg according to its lifetime.
func (r *resolution) instance(reg *typeRegistration) (any, error) {
	for _, k := range r.chain {
		if k == reg.key {
			cycle := make([]string, 0, len(r.chain)+1)
			for _, c := range r.chain {
				cycle = append(cycle, c.String())
			}
			return nil, ErrCircularDependency(append(cycle, reg.key.String()))
		}
	}

	child := &resolution{
		c:     r.c,
		scope: r.scope,
		chain: append(append([]typeKey(nil), r.chain...), reg.key),
	}

	switch {
	case reg.scope.IsSingleton():
		return child.singleton(reg)
	case reg.scope.IsScoped():
		return child.scoped(reg)
	default:
		return child.activate(reg)
	}
}

func (r *resolution) singleton(reg *typeRegistration) (any, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.constructed {
		return reg.instance, nil
	}

	instance, err := r.activate(reg)
	if err != nil {
		return nil, err
	}
	if err := startInstance(reg, instance); err != nil {
		return nil, err
	}

	reg.instance = instance
	reg.constructed = true

	r.c.mu.Lock()
	r.c.singletons = append(r.c.singletons, reg)
	r.c.mu.Unlock()

	return instance, nil
}

func (r *resolution) scoped(reg *typeRegistration) (any, error) {
	owner := r.scope.find(reg.scope)
	if owner == nil {
		return nil, ErrScopeNotFound(reg.key.typ, reg.scope)
	}

	if instance, ok, err := owner.cached(reg); err != nil || ok {
		return instance, err
	}

	instance, err := r.activate(reg)
	if err != nil {
		return nil, err
	}
	if err := startInstance(reg, instance); err != nil {
		return nil, err
	}

	stored, kept, err := owner.store(reg, instance)
	if !kept {
		// Lost the race or the scope ended; ours is never handed out.
		if disposeErr := disposeInstance(instance); disposeErr != nil {
			r.c.logger.Warn("failed to dispose discarded instance",
				zap.Stringer("key", reg.key), zap.Error(disposeErr))
		}
	}
	return stored, err
}

// activate builds a new instance of reg.
func (r *resolution) activate(reg *typeRegistration) (any, error) {
	var (
		instance any
		err      error
	)

	switch reg.target.Kind() {
	case TargetType:
		instance, err = r.activateType(reg)
	case TargetFactory:
		instance, err = reg.target.factory(r.c.cfg.Resolver(r))
	case TargetConstructor:
		instance, err = r.activateConstructor(reg)
	default:
		err = errNilArgument("target")
	}

	if err != nil {
		return nil, NewServiceError(reg.key.String(), "activate", err)
	}

	r.c.logger.Debug("activated",
		zap.Stringer("key", reg.key),
		zap.Stringer("target", reg.target),
		zap.Stringer("scope", reg.scope))

	return instance, nil
}

func (r *resolution) activateType(reg *typeRegistration) (any, error) {
	result, settable, err := allocate(reg.target.ImplementationType())
	if err != nil {
		return nil, err
	}

	for _, f := range reg.fields {
		value, err := r.resolveProperty(f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.desc.Name, err)
		}
		if value == nil {
			continue
		}
		v, err := assignable(f.desc.Type, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.desc.Name, err)
		}
		settable.FieldByIndex(f.index).Set(v)
	}

	return result.Interface(), nil
}

func (r *resolution) activateConstructor(reg *typeRegistration) (any, error) {
	info := reg.target.constructor
	args := make([]any, len(info.params))

	for i, p := range info.params {
		value, err := r.resolveParameter(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		args[i] = value
	}

	return info.call(args)
}

// resolveParameter applies parameter > default precedence.
func (r *resolution) resolveParameter(d ParameterDescriptor) (any, error) {
	if d.Type == resolverType {
		return r.c.cfg.Resolver(r), nil
	}
	if reg, ok := r.c.registry.matchParameter(d); ok {
		return r.decorated(d.Type, reg)
	}
	return r.resolveSiteDefault(d.Type, false)
}

// resolveProperty applies property > named > default precedence.
func (r *resolution) resolveProperty(f fieldInfo) (any, error) {
	t := f.desc.Type
	if t == resolverType {
		return r.c.cfg.Resolver(r), nil
	}
	if reg, ok := r.c.registry.matchProperty(f.desc); ok {
		return r.decorated(t, reg)
	}
	if f.name != "" {
		reg, ok := r.c.registry.get(typeKey{typ: t, name: f.name})
		if !ok {
			if f.optional {
				return nil, nil
			}
			return nil, ErrServiceNotFound(t, f.name)
		}
		return r.decorated(t, reg)
	}
	return r.resolveSiteDefault(t, f.optional)
}

func (r *resolution) resolveSiteDefault(t reflect.Type, optional bool) (any, error) {
	if reg, ok := r.c.registry.getDefault(t); ok {
		return r.decorated(t, reg)
	}

	if t.Kind() == reflect.Slice && len(r.c.registry.getCollection(t.Elem())) > 0 {
		items, err := r.c.cfg.Resolver(r).ResolveAll(t.Elem())
		if err != nil {
			return nil, err
		}
		slice := reflect.MakeSlice(t, 0, len(items))
		for _, item := range items {
			v, err := assignable(t.Elem(), item)
			if err != nil {
				return nil, err
			}
			slice = reflect.Append(slice, v)
		}
		return slice.Interface(), nil
	}

	if optional {
		return nil, nil
	}
	return nil, ErrServiceNotFound(t, "")
}

func (r *resolution) decorated(serviceType reflect.Type, reg *typeRegistration) (any, error) {
	instance, err := r.instance(reg)
	if err != nil {
		return nil, err
	}
	if r.c.cfg.Decorate == nil {
		return instance, nil
	}
	return r.c.cfg.Decorate(serviceType, instance)
}
