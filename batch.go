package binder

import "reflect"

// Binding holds one root registration for batch registration.
type Binding struct {
	ServiceType reflect.Type
	Target      BindTarget
	Options     []RegisterOption
}

// Bind creates a Binding of S to target.
//
// Example:
//
//	binder.RegisterBindings(r,
//	    binder.Bind[Store](binder.TargetOf[*memStore](), binder.AsSingleton()),
//	    binder.BindType[Clock, *systemClock](),
//	)
func Bind[S any](target BindTarget, opts ...RegisterOption) Binding {
	return Binding{
		ServiceType: TypeOf[S](),
		Target:      target,
		Options:     opts,
	}
}

// BindType creates a Binding of S to the implementation I.
func BindType[S, I any](opts ...RegisterOption) Binding {
	return Bind[S](TargetOf[I](), opts...)
}

// BindFactory creates a Binding of S to a factory returning R. An invalid
// factory is reported by RegisterBindings.
func BindFactory[S, R any](factory func(Resolver) (R, error), opts ...RegisterOption) Binding {
	target, _ := FactoryTarget(factory)
	return Bind[S](target, opts...)
}

// RegisterBindings registers multiple bindings in a single call.
// Returns the first error; bindings before it stay registered.
func RegisterBindings(r *Registrar, bindings ...Binding) error {
	for _, b := range bindings {
		if b.Target.IsZero() {
			return errNilArgument("target of " + typeName(b.ServiceType))
		}
		if err := r.RegisterTarget(b.ServiceType, b.Target, b.Options...); err != nil {
			return err
		}
	}
	return nil
}
