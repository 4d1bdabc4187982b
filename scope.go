package binder

import "strings"

// ResolutionScope is the lifetime policy of a binding. The zero value is
// Transient. Scopes compare by name, case-insensitively.
type ResolutionScope struct {
	name string
}

const (
	transientName = "transient"
	singletonName = "singleton"
	defaultName   = "scoped"
)

var (
	// Transient creates a new instance on every resolution.
	Transient = ResolutionScope{}

	// Singleton shares one instance for the lifetime of the resolver.
	Singleton = ResolutionScope{name: singletonName}

	// DefaultScope shares one instance per ambient scope (see Resolver.BeginScope).
	DefaultScope = ResolutionScope{name: defaultName}
)

// NamedScope returns a custom scope. Instances are shared within the nearest
// open scope that was begun with the same name. The well-known names map to
// their predefined scopes.
func NamedScope(name string) ResolutionScope {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == transientName {
		n = ""
	}
	return ResolutionScope{name: n}
}

// String returns the scope name.
func (s ResolutionScope) String() string {
	if s.name == "" {
		return transientName
	}
	return s.name
}

// Equal reports whether both scopes have the same name, ignoring case.
func (s ResolutionScope) Equal(other ResolutionScope) bool {
	return strings.EqualFold(s.String(), other.String())
}

// IsTransient reports whether instances are never shared.
func (s ResolutionScope) IsTransient() bool { return s.name == "" }

// IsSingleton reports whether one instance is shared by the whole resolver.
func (s ResolutionScope) IsSingleton() bool { return s.name == singletonName }

// IsScoped reports whether instances are cached in an open scope.
func (s ResolutionScope) IsScoped() bool { return !s.IsTransient() && !s.IsSingleton() }

// matches reports whether an open scope begun as open can hold instances of s.
func (s ResolutionScope) matches(open ResolutionScope) bool {
	if s.name == defaultName {
		return true
	}
	return s.Equal(open)
}
