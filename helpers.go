package binder

import "fmt"

// Register binds S to itself. S must be a struct or pointer to struct.
func Register[S any](r *Registrar, opts ...RegisterOption) error {
	return r.RegisterTarget(TypeOf[S](), TargetOf[S](), opts...)
}

// RegisterType binds S to the implementation I.
//
// Usage:
//
//	binder.RegisterType[Greeter, *EnglishGreeter](r, binder.AsSingleton())
func RegisterType[S, I any](r *Registrar, opts ...RegisterOption) error {
	return r.RegisterTarget(TypeOf[S](), TargetOf[I](), opts...)
}

// RegisterFactory binds S to a factory returning R. R must be assignable to S;
// this is checked here, not when the factory runs.
//
// Usage:
//
//	binder.RegisterFactory[Clock](r, func(binder.Resolver) (*fixedClock, error) {
//	    return &fixedClock{}, nil
//	})
func RegisterFactory[S, R any](r *Registrar, factory func(Resolver) (R, error), opts ...RegisterOption) error {
	target, err := FactoryTarget(factory)
	if err != nil {
		return err
	}
	return r.RegisterTarget(TypeOf[S](), target, opts...)
}

// RegisterConstructor binds S to a constructor function.
func RegisterConstructor[S any](r *Registrar, constructor any, opts ...RegisterOption) error {
	return r.RegisterConstructor(TypeOf[S](), constructor, opts...)
}

// RegisterValue binds S to a pre-built instance as a singleton.
func RegisterValue[S any](r *Registrar, value S, opts ...RegisterOption) error {
	opts = append([]RegisterOption{AsSingleton()}, opts...)
	return RegisterFactory[S](r, func(Resolver) (S, error) {
		return value, nil
	}, opts...)
}

// RegisterAll adds a collection binding of S for every target.
func RegisterAll[S any](r *Registrar, scope ResolutionScope, profile InterceptorProfile, targets ...BindTarget) error {
	return r.RegisterAll(TypeOf[S](), scope, profile, targets...)
}

// Resolve with type safety.
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	instance, err := r.Resolve(TypeOf[T]())
	if err != nil {
		return zero, err
	}

	return typed[T](instance)
}

// MustResolve resolves or panics. Use only during startup.
func MustResolve[T any](r Resolver) T {
	instance, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", TypeOf[T](), err))
	}

	return instance
}

// ResolveNamed resolves the Named context name of T.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	var zero T

	instance, err := r.ResolveNamed(TypeOf[T](), name)
	if err != nil {
		return zero, err
	}

	return typed[T](instance)
}

// ResolveAll resolves every collection binding of T in registration order.
func ResolveAll[T any](r Resolver) ([]T, error) {
	instances, err := r.ResolveAll(TypeOf[T]())
	if err != nil {
		return nil, err
	}

	out := make([]T, len(instances))
	for i, instance := range instances {
		v, err := typed[T](instance)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

func typed[T any](instance any) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}

	v, ok := instance.(T)
	if !ok {
		return zero, ErrTypeMismatch(TypeOf[T]().String(), instance)
	}

	return v, nil
}
