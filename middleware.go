package binder

import "context"

// Middleware provides hooks around container resolution.
// Middleware can be used for logging, auditing, access checks, testing, etc.
type Middleware interface {
	// BeforeResolve is called before resolving a binding.
	// Return error to abort resolution.
	BeforeResolve(ctx context.Context, key string) error

	// AfterResolve is called after resolving a binding.
	// Called even if resolution failed (instance and err may both be set).
	AfterResolve(ctx context.Context, key string, instance any, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	middleware []Middleware
}

// newMiddlewareChain creates a new middleware chain.
func newMiddlewareChain(middleware ...Middleware) *middlewareChain {
	chain := &middlewareChain{
		middleware: make([]Middleware, 0, len(middleware)),
	}
	for _, mw := range middleware {
		if mw != nil {
			chain.add(mw)
		}
	}
	return chain
}

// add appends middleware to the chain.
func (m *middlewareChain) add(middleware Middleware) {
	m.middleware = append(m.middleware, middleware)
}

// beforeResolve calls BeforeResolve on all middleware.
func (m *middlewareChain) beforeResolve(ctx context.Context, key string) error {
	for _, mw := range m.middleware {
		if err := mw.BeforeResolve(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// afterResolve calls AfterResolve on all middleware.
func (m *middlewareChain) afterResolve(ctx context.Context, key string, instance any, err error) error {
	for _, mw := range m.middleware {
		if mwErr := mw.AfterResolve(ctx, key, instance, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// FuncMiddleware wraps functions as Middleware.
type FuncMiddleware struct {
	BeforeResolveFunc func(ctx context.Context, key string) error
	AfterResolveFunc  func(ctx context.Context, key string, instance any, err error) error
}

// BeforeResolve implements Middleware.
func (f *FuncMiddleware) BeforeResolve(ctx context.Context, key string) error {
	if f.BeforeResolveFunc != nil {
		return f.BeforeResolveFunc(ctx, key)
	}
	return nil
}

// AfterResolve implements Middleware.
func (f *FuncMiddleware) AfterResolve(ctx context.Context, key string, instance any, err error) error {
	if f.AfterResolveFunc != nil {
		return f.AfterResolveFunc(ctx, key, instance, err)
	}
	return nil
}
