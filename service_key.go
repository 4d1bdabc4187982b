package binder

import "reflect"

// ServiceKey identifies a Named binding of T.
//
// Example:
//
//	var PrimaryDB = binder.NewServiceKey[Database]("primary")
//	db, err := binder.ResolveWithKey(resolver, PrimaryDB)
type ServiceKey[T any] struct {
	name string
}

// NewServiceKey creates a new typed service key.
func NewServiceKey[T any](name string) ServiceKey[T] {
	return ServiceKey[T]{name: name}
}

// Name returns the context name of the key.
func (k ServiceKey[T]) Name() string {
	return k.name
}

// ServiceType returns T's reflect.Type.
func (k ServiceKey[T]) ServiceType() reflect.Type {
	return TypeOf[T]()
}

func (k ServiceKey[T]) String() string {
	return typeKey{typ: TypeOf[T](), name: k.name}.String()
}

// Context builds the Named context of the key.
//
// Example:
//
//	ctx, err := PrimaryDB.Context(binder.TargetOf[*postgres](), binder.Singleton)
//	err = binder.RegisterType[Database, *sqlite](r, binder.WithContexts(ctx))
func (k ServiceKey[T]) Context(target BindTarget, scope ResolutionScope) (BindContext, error) {
	return NamedContext(k.name, target, scope)
}

// ResolveWithKey resolves the binding identified by key.
func ResolveWithKey[T any](r Resolver, key ServiceKey[T]) (T, error) {
	return ResolveNamed[T](r, key.name)
}

// MustWithKey resolves the binding identified by key and panics on error.
func MustWithKey[T any](r Resolver, key ServiceKey[T]) T {
	result, err := ResolveWithKey(r, key)
	if err != nil {
		panic(err)
	}
	return result
}

// HasKey reports whether the manifest registers key.
func HasKey[T any](m *Manifest, key ServiceKey[T]) bool {
	info, ok := m.RootRegistrationFor(TypeOf[T]())
	if !ok {
		return false
	}
	for _, ctx := range info.BindContexts() {
		if ctx.Kind() == ContextNamed && ctx.Name() == key.name {
			return true
		}
	}
	return false
}
