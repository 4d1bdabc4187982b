package binder

import (
	"fmt"
	"reflect"
)

// Registration couples a service type with its bind contexts, scope and
// interceptor profile. It is immutable once built.
type Registration struct {
	serviceType reflect.Type
	scope       ResolutionScope
	profile     InterceptorProfile
	contexts    []BindContext // contexts[0] is always the default context
}

// NewSelfRegistration binds serviceType to itself as a transient type target.
func NewSelfRegistration(serviceType reflect.Type) (Registration, error) {
	if serviceType == nil {
		return Registration{}, errNilArgument("service type")
	}
	target, err := TypeTarget(serviceType)
	if err != nil {
		return Registration{}, err
	}
	return NewRegistration(serviceType, target, Transient, NoProfile)
}

// NewRegistration binds serviceType to target as the default context and adds
// the extra conditional contexts. At most one Named context per name, one
// Parameter context and one Property context are allowed.
func NewRegistration(
	serviceType reflect.Type,
	target BindTarget,
	scope ResolutionScope,
	profile InterceptorProfile,
	extra ...BindContext,
) (Registration, error) {
	if serviceType == nil {
		return Registration{}, errNilArgument("service type")
	}
	if target.IsZero() {
		return Registration{}, errNilArgument("target")
	}
	if err := target.checkAssignable(serviceType); err != nil {
		return Registration{}, err
	}

	def, err := DefaultContext(target, scope)
	if err != nil {
		return Registration{}, err
	}

	contexts := make([]BindContext, 0, len(extra)+1)
	contexts = append(contexts, def)

	names := make(map[string]struct{})
	var hasParameter, hasProperty bool

	for i, ctx := range extra {
		switch ctx.Kind() {
		case ContextDefault:
			return Registration{}, errInvalidArgument(
				fmt.Sprintf("context %d", i), "default context is implicit and cannot be supplied")
		case ContextNamed:
			if _, dup := names[ctx.Name()]; dup {
				return Registration{}, ErrConflicting(serviceType, ContextNamed, ctx.Name())
			}
			names[ctx.Name()] = struct{}{}
		case ContextParameter:
			if hasParameter {
				return Registration{}, ErrConflicting(serviceType, ContextParameter, "")
			}
			hasParameter = true
		case ContextProperty:
			if hasProperty {
				return Registration{}, ErrConflicting(serviceType, ContextProperty, "")
			}
			hasProperty = true
		default:
			return Registration{}, errNilArgument(fmt.Sprintf("context %d", i))
		}

		if err := ctx.Target().checkAssignable(serviceType); err != nil {
			return Registration{}, err
		}
		contexts = append(contexts, ctx)
	}

	return Registration{
		serviceType: serviceType,
		scope:       scope,
		profile:     profile,
		contexts:    contexts,
	}, nil
}

// ServiceType returns the type the registration is resolved by.
func (r Registration) ServiceType() reflect.Type { return r.serviceType }

// Scope returns the lifetime of the default context.
func (r Registration) Scope() ResolutionScope { return r.scope }

// Profile returns the interceptor profile, NoProfile when not intercepted.
func (r Registration) Profile() InterceptorProfile { return r.profile }

// DefaultContext returns the implicit default context.
func (r Registration) DefaultContext() BindContext {
	if len(r.contexts) == 0 {
		return BindContext{}
	}
	return r.contexts[0]
}

// ImplementationType returns the type of the default target.
func (r Registration) ImplementationType() reflect.Type {
	return r.DefaultContext().Target().ImplementationType()
}

// BindContexts returns all contexts, default first.
func (r Registration) BindContexts() []BindContext {
	out := make([]BindContext, len(r.contexts))
	copy(out, r.contexts)
	return out
}

// IsZero reports whether r is the zero Registration.
func (r Registration) IsZero() bool { return r.serviceType == nil }

// Equal compares registrations structurally.
func (r Registration) Equal(other Registration) bool {
	if r.serviceType != other.serviceType ||
		!r.scope.Equal(other.scope) ||
		!r.profile.Equal(other.profile) ||
		len(r.contexts) != len(other.contexts) {
		return false
	}
	for i := range r.contexts {
		if !r.contexts[i].Equal(other.contexts[i]) {
			return false
		}
	}
	return true
}

func (r Registration) String() string {
	return fmt.Sprintf("%s -> %s", typeName(r.serviceType), r.DefaultContext())
}
