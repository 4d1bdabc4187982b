package binder

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Registrar is the write side of the binder. It collects registrations into
// a manifest while Open; BuildResolver pushes them into a container and
// closes it. A Registrar must only be mutated from one goroutine while Open.
type Registrar struct {
	cfg      *registrarConfig
	manifest *Manifest
	logger   *zap.Logger
	resolver Resolver
	closed   bool
	mu       sync.Mutex
}

// NewRegistrar creates an open registrar.
func NewRegistrar(opts ...Option) *Registrar {
	cfg := defaultRegistrarConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return &Registrar{
		cfg:      cfg,
		manifest: NewManifest(),
		logger:   cfg.logger.Named("registrar"),
	}
}

// IsRegistrationClosed reports whether BuildResolver has succeeded.
func (r *Registrar) IsRegistrationClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Manifest returns the registrations collected so far.
func (r *Registrar) Manifest() *Manifest { return r.manifest }

// Register binds serviceType to itself.
func (r *Registrar) Register(serviceType reflect.Type, opts ...RegisterOption) error {
	if serviceType == nil {
		return errNilArgument("service type")
	}
	target, err := TypeTarget(serviceType)
	if err != nil {
		return err
	}
	return r.RegisterTarget(serviceType, target, opts...)
}

// RegisterImplementation binds serviceType to the concrete implType.
func (r *Registrar) RegisterImplementation(serviceType, implType reflect.Type, opts ...RegisterOption) error {
	target, err := TypeTarget(implType)
	if err != nil {
		return err
	}
	return r.RegisterTarget(serviceType, target, opts...)
}

// RegisterFactory binds serviceType to a factory with a declared result type.
func (r *Registrar) RegisterFactory(serviceType, resultType reflect.Type, factory FactoryFunc, opts ...RegisterOption) error {
	target, err := FactoryTargetOf(resultType, factory)
	if err != nil {
		return err
	}
	return r.RegisterTarget(serviceType, target, opts...)
}

// RegisterConstructor binds serviceType to a constructor function whose
// parameters are resolved from the container.
func (r *Registrar) RegisterConstructor(serviceType reflect.Type, constructor any, opts ...RegisterOption) error {
	target, err := ConstructorTarget(constructor)
	if err != nil {
		return err
	}
	return r.RegisterTarget(serviceType, target, opts...)
}

// RegisterTarget adds the root registration of serviceType.
func (r *Registrar) RegisterTarget(serviceType reflect.Type, target BindTarget, opts ...RegisterOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistrationClosed
	}

	cfg, err := mergeOptions(opts)
	if err != nil {
		return err
	}

	info, err := NewRegistration(serviceType, target, cfg.scope, cfg.profile, cfg.contexts...)
	if err != nil {
		return err
	}

	if _, err := r.manifest.AddRootRegistration(info); err != nil {
		return err
	}

	r.logger.Debug("registered",
		zap.Stringer("service", serviceType),
		zap.Stringer("target", target),
		zap.Stringer("scope", cfg.scope),
		zap.Int("contexts", len(cfg.contexts)),
		zap.Int("interceptors", cfg.profile.Len()))

	return nil
}

// RegisterAll adds one collection registration per target, all or none.
func (r *Registrar) RegisterAll(serviceType reflect.Type, scope ResolutionScope, profile InterceptorProfile, targets ...BindTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistrationClosed
	}

	infos := make([]Registration, 0, len(targets))
	for _, target := range targets {
		info, err := NewRegistration(serviceType, target, scope, profile)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}

	if err := r.manifest.AddCollectionRegistrations(infos...); err != nil {
		return err
	}

	r.logger.Debug("registered collection",
		zap.Stringer("service", serviceType),
		zap.Int("targets", len(targets)),
		zap.Stringer("scope", scope))

	return nil
}

// BuildResolver pushes the manifest into a new container, verifies it and
// returns the resolver. Later calls return the same resolver. When the
// container fails verification it is disposed and the registrar stays open.
func (r *Registrar) BuildResolver() (Resolver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return r.resolver, nil
	}

	core := &resolverCore{
		manifest: r.manifest,
		proxies:  r.cfg.proxies,
		logger:   r.cfg.logger.Named("resolver"),
	}

	container := r.cfg.containers(ContainerConfig{
		Logger:     r.cfg.logger,
		Middleware: r.cfg.middleware,
		Resolver:   core.view,
		Decorate:   core.decorate,
	})

	if err := r.manifest.each(func(info Registration, collection bool) error {
		return pushRegistration(container, info, collection)
	}); err != nil {
		_ = container.Dispose()
		return nil, err
	}

	if err := container.Verify(); err != nil {
		_ = container.Dispose()
		r.logger.Warn("container verification failed", zap.Error(err))
		return nil, err
	}

	r.manifest.freeze()
	core.container = container
	r.resolver = &resolver{core: core, locator: container, owner: true}
	r.closed = true

	r.logger.Info("resolver built",
		zap.Int("root_services", len(r.manifest.RootServices())),
		zap.Int("collection_services", len(r.manifest.CollectionServices())),
		zap.Int("registrations", r.manifest.Len()))

	return r.resolver, nil
}

// pushRegistration registers info's contexts with the container.
func pushRegistration(c Container, info Registration, collection bool) error {
	serviceType := info.ServiceType()
	def := info.DefaultContext()
	target := def.Target()

	if collection {
		return c.RegisterCollectionEntry(serviceType, target, def.Scope())
	}

	var err error
	switch target.Kind() {
	case TargetType:
		err = c.RegisterType(serviceType, target.ImplementationType(), def.Scope())
	case TargetFactory, TargetConstructor:
		err = c.RegisterFactory(serviceType, target, def.Scope())
	default:
		err = errNilArgument("target")
	}
	if err != nil {
		return err
	}

	for _, ctx := range info.BindContexts()[1:] {
		if err := c.RegisterContext(serviceType, ctx); err != nil {
			return err
		}
	}

	return nil
}
