package binder

import (
	"fmt"
	"reflect"
	"regexp"
)

const contextNamePattern = `^[A-Za-z_]\w*$`

var contextNameRegexp = regexp.MustCompile(contextNamePattern)

// ContextKind discriminates the variants of BindContext.
type ContextKind uint8

const (
	// ContextDefault always applies.
	ContextDefault ContextKind = iota + 1
	// ContextNamed applies when the resolution requests its name.
	ContextNamed
	// ContextParameter applies to constructor parameters matching its predicate.
	ContextParameter
	// ContextProperty applies to struct fields matching its predicate.
	ContextProperty
)

func (k ContextKind) String() string {
	switch k {
	case ContextDefault:
		return "default"
	case ContextNamed:
		return "named"
	case ContextParameter:
		return "parameter"
	case ContextProperty:
		return "property"
	default:
		return "invalid"
	}
}

// ParameterPredicate selects constructor parameter sites.
type ParameterPredicate func(ParameterDescriptor) bool

// PropertyPredicate selects struct field sites.
type PropertyPredicate func(PropertyDescriptor) bool

// BindContext is a condition under which a target applies.
//
// At an injection site the container picks the most specific match:
// a matching Parameter or Property context, then a Named context, then Default.
type BindContext struct {
	kind      ContextKind
	target    BindTarget
	scope     ResolutionScope
	name      string
	parameter ParameterPredicate
	property  PropertyPredicate
}

// DefaultContext binds target unconditionally.
func DefaultContext(target BindTarget, scope ResolutionScope) (BindContext, error) {
	if target.IsZero() {
		return BindContext{}, errNilArgument("target")
	}
	return BindContext{kind: ContextDefault, target: target, scope: scope}, nil
}

// NamedContext binds target under name.
func NamedContext(name string, target BindTarget, scope ResolutionScope) (BindContext, error) {
	if target.IsZero() {
		return BindContext{}, errNilArgument("target")
	}
	if !contextNameRegexp.MatchString(name) {
		return BindContext{}, ErrInvalidName(name)
	}
	return BindContext{kind: ContextNamed, target: target, scope: scope, name: name}, nil
}

// ParameterContext binds target at constructor parameters selected by predicate.
func ParameterContext(target BindTarget, predicate ParameterPredicate, scope ResolutionScope) (BindContext, error) {
	if target.IsZero() {
		return BindContext{}, errNilArgument("target")
	}
	if predicate == nil {
		return BindContext{}, errNilArgument("parameter predicate")
	}
	return BindContext{kind: ContextParameter, target: target, scope: scope, parameter: predicate}, nil
}

// PropertyContext binds target at struct fields selected by predicate.
func PropertyContext(target BindTarget, predicate PropertyPredicate, scope ResolutionScope) (BindContext, error) {
	if target.IsZero() {
		return BindContext{}, errNilArgument("target")
	}
	if predicate == nil {
		return BindContext{}, errNilArgument("property predicate")
	}
	return BindContext{kind: ContextProperty, target: target, scope: scope, property: predicate}, nil
}

// Kind returns the variant tag.
func (c BindContext) Kind() ContextKind { return c.kind }

// Target returns the bound target.
func (c BindContext) Target() BindTarget { return c.target }

// Scope returns the lifetime of instances created through this context.
func (c BindContext) Scope() ResolutionScope { return c.scope }

// Name returns the context name of a Named context, or "".
func (c BindContext) Name() string { return c.name }

// IsZero reports whether c was not built by a constructor.
func (c BindContext) IsZero() bool { return c.kind == 0 }

// MatchParameter reports whether a Parameter context applies to d.
func (c BindContext) MatchParameter(d ParameterDescriptor) bool {
	return c.kind == ContextParameter && c.parameter(d)
}

// MatchProperty reports whether a Property context applies to d.
func (c BindContext) MatchProperty(d PropertyDescriptor) bool {
	return c.kind == ContextProperty && c.property(d)
}

// Equal compares contexts structurally. Predicates compare by code pointer.
func (c BindContext) Equal(other BindContext) bool {
	if c.kind != other.kind || !c.scope.Equal(other.scope) || !c.target.Equal(other.target) {
		return false
	}
	switch c.kind {
	case ContextDefault:
		return true
	case ContextNamed:
		return c.name == other.name
	case ContextParameter:
		return funcID(c.parameter) == funcID(other.parameter)
	case ContextProperty:
		return funcID(c.property) == funcID(other.property)
	default:
		return true
	}
}

// key returns the registry key suffix the container stores this context under.
// Parameter and property keys cannot collide with names, which never start with '#'.
func (c BindContext) key() string {
	switch c.kind {
	case ContextDefault:
		return ""
	case ContextNamed:
		return c.name
	case ContextParameter:
		return "#parameter"
	case ContextProperty:
		return "#property"
	default:
		return "#invalid"
	}
}

func (c BindContext) String() string {
	switch c.kind {
	case ContextNamed:
		return fmt.Sprintf("named[%s] %s %s", c.name, c.target, c.scope)
	default:
		return fmt.Sprintf("%s %s %s", c.kind, c.target, c.scope)
	}
}

func funcID(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return 0
	}
	return v.Pointer()
}
