package binder

import (
	"reflect"
	"sync"
)

// ProxyGenerator wraps a target so that calls run through interceptors.
// It must return an error satisfying errors.Is(err, ErrCannotProxySentinel)
// for service types it cannot wrap; the resolver surfaces that unchanged.
type ProxyGenerator interface {
	// CreateInterfaceProxyWithTarget wraps target behind interface serviceType.
	CreateInterfaceProxyWithTarget(serviceType reflect.Type, markers []reflect.Type, target any, interceptors []Interceptor) (any, error)

	// CreateClassProxyWithTarget wraps a concrete target with a type that
	// embeds it and overrides its intercepted methods.
	CreateClassProxyWithTarget(serviceType reflect.Type, markers []reflect.Type, target any, interceptors []Interceptor) (any, error)
}

// ProxyHandler is handed to proxy constructors. A proxy forwards each
// intercepted method to Invoke.
type ProxyHandler struct {
	serviceType  reflect.Type
	target       any
	interceptors []Interceptor
	proxy        any
}

// Target returns the wrapped instance.
func (h *ProxyHandler) Target() any { return h.target }

// ServiceType returns the type the proxy stands in for.
func (h *ProxyHandler) ServiceType() reflect.Type { return h.serviceType }

// Invoke runs method through the interceptor chain.
func (h *ProxyHandler) Invoke(method Method, args ...any) ([]any, error) {
	return Intercept(method, h.proxy, h.targetFactory, args, nil, h.interceptors)
}

// InvokeGeneric is Invoke for calls carrying type arguments.
func (h *ProxyHandler) InvokeGeneric(method Method, typeArgs []reflect.Type, args ...any) ([]any, error) {
	return Intercept(method, h.proxy, h.targetFactory, args, typeArgs, h.interceptors)
}

func (h *ProxyHandler) targetFactory() (any, error) {
	return h.target, nil
}

// ProxyConstructor builds a proxy around the handler.
type ProxyConstructor func(h *ProxyHandler) any

// ProxyRegistry is the default ProxyGenerator. Go cannot build types at run
// time, so each proxyable service type registers a constructor for its
// (hand-written or generated) proxy type. Types without one are sealed.
type ProxyRegistry struct {
	mu           sync.RWMutex
	constructors map[reflect.Type]ProxyConstructor
}

// NewProxyRegistry creates an empty registry.
func NewProxyRegistry() *ProxyRegistry {
	return &ProxyRegistry{
		constructors: make(map[reflect.Type]ProxyConstructor),
	}
}

// Register adds the proxy constructor for serviceType.
func (p *ProxyRegistry) Register(serviceType reflect.Type, constructor ProxyConstructor) error {
	if serviceType == nil {
		return errNilArgument("service type")
	}
	if constructor == nil {
		return errNilArgument("proxy constructor")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.constructors[serviceType]; exists {
		return ErrDuplicate(serviceType)
	}
	p.constructors[serviceType] = constructor

	return nil
}

// Has reports whether serviceType can be proxied.
func (p *ProxyRegistry) Has(serviceType reflect.Type) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.constructors[serviceType]
	return ok
}

// RegisterProxy registers a typed proxy constructor for T.
//
// Example:
//
//	binder.RegisterProxy[Greeter](proxies, func(h *binder.ProxyHandler) Greeter {
//	    return &greeterProxy{h: h}
//	})
func RegisterProxy[T any](p *ProxyRegistry, constructor func(h *ProxyHandler) T) error {
	if constructor == nil {
		return errNilArgument("proxy constructor")
	}
	return p.Register(TypeOf[T](), func(h *ProxyHandler) any {
		return constructor(h)
	})
}

// CreateInterfaceProxyWithTarget implements ProxyGenerator.
func (p *ProxyRegistry) CreateInterfaceProxyWithTarget(
	serviceType reflect.Type,
	markers []reflect.Type,
	target any,
	interceptors []Interceptor,
) (any, error) {
	if serviceType == nil {
		return nil, errNilArgument("service type")
	}
	if serviceType.Kind() != reflect.Interface {
		return nil, ErrCannotProxy(serviceType, "interface proxy requires an interface type")
	}
	return p.create(serviceType, markers, target, interceptors)
}

// CreateClassProxyWithTarget implements ProxyGenerator.
func (p *ProxyRegistry) CreateClassProxyWithTarget(
	serviceType reflect.Type,
	markers []reflect.Type,
	target any,
	interceptors []Interceptor,
) (any, error) {
	if serviceType == nil {
		return nil, errNilArgument("service type")
	}
	if serviceType.Kind() == reflect.Interface {
		return nil, ErrCannotProxy(serviceType, "class proxy requires a concrete type")
	}
	return p.create(serviceType, markers, target, interceptors)
}

func (p *ProxyRegistry) create(
	serviceType reflect.Type,
	markers []reflect.Type,
	target any,
	interceptors []Interceptor,
) (any, error) {
	if target == nil {
		return nil, errNilArgument("target")
	}
	if !reflect.TypeOf(target).AssignableTo(serviceType) {
		return nil, ErrIncompatible(serviceType, reflect.TypeOf(target))
	}

	p.mu.RLock()
	constructor, ok := p.constructors[serviceType]
	p.mu.RUnlock()

	if !ok {
		return nil, ErrCannotProxy(serviceType, "type is sealed: no proxy type registered")
	}

	h := &ProxyHandler{
		serviceType:  serviceType,
		target:       target,
		interceptors: append([]Interceptor(nil), interceptors...),
	}
	proxy := constructor(h)
	if proxy == nil {
		return nil, ErrCannotProxy(serviceType, "proxy constructor returned nil")
	}
	h.proxy = proxy

	proxyType := reflect.TypeOf(proxy)
	if serviceType.Kind() == reflect.Interface && !proxyType.Implements(serviceType) {
		return nil, ErrCannotProxy(serviceType, "proxy does not implement the service")
	}
	// A class proxy cannot be a serviceType; it must at least expose its methods.
	if serviceType.Kind() != reflect.Interface && !proxyType.AssignableTo(serviceType) {
		for i := 0; i < serviceType.NumMethod(); i++ {
			name := serviceType.Method(i).Name
			if _, ok := proxyType.MethodByName(name); !ok {
				return nil, ErrCannotProxy(serviceType, "proxy does not expose method "+name)
			}
		}
	}
	for _, marker := range markers {
		if marker == nil || marker.Kind() != reflect.Interface || !proxyType.Implements(marker) {
			return nil, ErrCannotProxy(serviceType, "proxy does not implement marker "+typeName(marker))
		}
	}

	return proxy, nil
}
