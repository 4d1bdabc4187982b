package binder

import "go.uber.org/zap"

// Option configures a Registrar.
type Option func(*registrarConfig)

type registrarConfig struct {
	logger     *zap.Logger
	containers ContainerFactory
	proxies    ProxyGenerator
	middleware []Middleware
}

func defaultRegistrarConfig() *registrarConfig {
	return &registrarConfig{
		logger:     zap.NewNop(),
		containers: NewContainer,
		proxies:    NewProxyRegistry(),
	}
}

// WithLogger sets the logger shared by the registrar, resolver and container.
func WithLogger(logger *zap.Logger) Option {
	return func(c *registrarConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContainerFactory replaces the default container integration.
func WithContainerFactory(factory ContainerFactory) Option {
	return func(c *registrarConfig) {
		if factory != nil {
			c.containers = factory
		}
	}
}

// WithProxyGenerator sets the generator used for intercepted registrations.
func WithProxyGenerator(generator ProxyGenerator) Option {
	return func(c *registrarConfig) {
		c.proxies = generator
	}
}

// WithMiddleware adds container resolution middleware.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *registrarConfig) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// RegisterOption is a configuration option for a single registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	scope        ResolutionScope
	profile      InterceptorProfile
	interceptors []Interceptor
	contexts     []BindContext
}

// WithScope sets the lifetime of the default context. Transient when omitted.
func WithScope(scope ResolutionScope) RegisterOption {
	return func(c *registerConfig) {
		c.scope = scope
	}
}

// AsSingleton is WithScope(Singleton).
func AsSingleton() RegisterOption { return WithScope(Singleton) }

// AsTransient is WithScope(Transient).
func AsTransient() RegisterOption { return WithScope(Transient) }

// AsScoped is WithScope(DefaultScope).
func AsScoped() RegisterOption { return WithScope(DefaultScope) }

// WithProfile attaches an interceptor profile.
func WithProfile(profile InterceptorProfile) RegisterOption {
	return func(c *registerConfig) {
		c.profile = profile
	}
}

// WithInterceptors builds a profile from interceptors. Invalid lists are
// reported by the registration call.
func WithInterceptors(interceptors ...Interceptor) RegisterOption {
	return func(c *registerConfig) {
		c.interceptors = append(c.interceptors, interceptors...)
	}
}

// WithContexts adds Named, Parameter or Property contexts.
func WithContexts(contexts ...BindContext) RegisterOption {
	return func(c *registerConfig) {
		c.contexts = append(c.contexts, contexts...)
	}
}

// mergeOptions combines multiple options.
func mergeOptions(opts []RegisterOption) (*registerConfig, error) {
	cfg := &registerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if len(cfg.interceptors) > 0 {
		if !cfg.profile.IsEmpty() {
			return nil, errProfile("cannot combine WithProfile and WithInterceptors")
		}
		profile, err := NewInterceptorProfile(cfg.interceptors...)
		if err != nil {
			return nil, err
		}
		cfg.profile = profile
	}

	return cfg, nil
}
