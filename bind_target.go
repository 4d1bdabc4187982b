package binder

import (
	"fmt"
	"reflect"
)

// TargetKind discriminates the variants of BindTarget.
type TargetKind uint8

const (
	// TargetType activates a concrete struct type and injects its tagged fields.
	TargetType TargetKind = iota + 1
	// TargetFactory invokes a factory with the resolver.
	TargetFactory
	// TargetConstructor calls a constructor function with resolved parameters.
	TargetConstructor
)

func (k TargetKind) String() string {
	switch k {
	case TargetType:
		return "type"
	case TargetFactory:
		return "factory"
	case TargetConstructor:
		return "constructor"
	default:
		return "invalid"
	}
}

// FactoryFunc builds an instance using the resolver it is handed.
type FactoryFunc func(r Resolver) (any, error)

// BindTarget describes how an implementation instance is obtained.
// The zero value is invalid; use one of the constructors.
type BindTarget struct {
	kind        TargetKind
	implType    reflect.Type
	factory     FactoryFunc
	factoryID   uintptr
	constructor *constructorInfo
}

// TypeTarget returns a target that activates implType.
func TypeTarget(implType reflect.Type) (BindTarget, error) {
	if implType == nil {
		return BindTarget{}, errNilArgument("implementation type")
	}
	return BindTarget{kind: TargetType, implType: implType}, nil
}

// TargetOf returns a type target for T.
func TargetOf[T any]() BindTarget {
	return BindTarget{kind: TargetType, implType: TypeOf[T]()}
}

// FactoryTarget returns a target invoking factory. The declared result type R
// is checked against the service type at registration.
func FactoryTarget[R any](factory func(Resolver) (R, error)) (BindTarget, error) {
	if factory == nil {
		return BindTarget{}, errNilArgument("factory")
	}
	t := BindTarget{
		kind:     TargetFactory,
		implType: TypeOf[R](),
		factory: func(r Resolver) (any, error) {
			return factory(r)
		},
		factoryID: reflect.ValueOf(factory).Pointer(),
	}
	return t, nil
}

// FactoryTargetOf returns a factory target with an explicit result type.
func FactoryTargetOf(resultType reflect.Type, factory FactoryFunc) (BindTarget, error) {
	if resultType == nil {
		return BindTarget{}, errNilArgument("factory result type")
	}
	if factory == nil {
		return BindTarget{}, errNilArgument("factory")
	}
	return BindTarget{
		kind:      TargetFactory,
		implType:  resultType,
		factory:   factory,
		factoryID: reflect.ValueOf(factory).Pointer(),
	}, nil
}

// ConstructorTarget returns a target calling constructor, which must be a
// function returning (T) or (T, error). Each parameter is an injection site.
func ConstructorTarget(constructor any) (BindTarget, error) {
	info, err := analyzeConstructor(constructor)
	if err != nil {
		return BindTarget{}, err
	}
	return BindTarget{
		kind:        TargetConstructor,
		implType:    info.result,
		factoryID:   info.fn.Pointer(),
		constructor: info,
	}, nil
}

// Kind returns the variant tag.
func (t BindTarget) Kind() TargetKind { return t.kind }

// ImplementationType is the activated type, or the declared result type of a
// factory or constructor.
func (t BindTarget) ImplementationType() reflect.Type { return t.implType }

// IsZero reports whether t was not built by a constructor.
func (t BindTarget) IsZero() bool { return t.kind == 0 }

// Equal compares targets structurally. Factories and constructors compare by
// code pointer, so two closures created from the same literal are equal.
func (t BindTarget) Equal(other BindTarget) bool {
	if t.kind != other.kind || t.implType != other.implType {
		return false
	}
	switch t.kind {
	case TargetType:
		return true
	case TargetFactory, TargetConstructor:
		return t.factoryID == other.factoryID
	default:
		return true
	}
}

func (t BindTarget) String() string {
	return fmt.Sprintf("%s(%s)", t.kind, typeName(t.implType))
}

// checkAssignable enforces that the target can serve serviceType.
func (t BindTarget) checkAssignable(serviceType reflect.Type) error {
	switch t.kind {
	case TargetType:
		if err := activatable(t.implType); err != nil {
			return err
		}
		if !t.implType.AssignableTo(serviceType) {
			return ErrIncompatible(serviceType, t.implType)
		}
		_, err := analyzeFields(t.implType)
		return err
	case TargetFactory, TargetConstructor:
		if !t.implType.AssignableTo(serviceType) {
			return ErrIncompatible(serviceType, t.implType)
		}
		return nil
	default:
		return errNilArgument("target")
	}
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
