package binder

import "reflect"

// RegistrationQuery defines criteria for querying manifest registrations.
type RegistrationQuery struct {
	// Scope filters by the lifetime of the default context.
	// nil matches all scopes.
	Scope *ResolutionScope

	// Kind filters by the default target kind. Zero matches all kinds.
	Kind TargetKind

	// Intercepted filters by whether the registration carries interceptors.
	// nil matches both.
	Intercepted *bool

	// Collection filters root (false) or collection (true) registrations.
	// nil matches both.
	Collection *bool

	// ContextKind keeps registrations with at least one context of this kind.
	// Zero matches all.
	ContextKind ContextKind
}

// RegistrationMatch is one query result.
type RegistrationMatch struct {
	Registration Registration
	Collection   bool
}

// QueryRegistrations returns registrations matching query, roots first, each
// group in registration order.
//
// Example:
//
//	intercepted := true
//	results := binder.QueryRegistrations(m, binder.RegistrationQuery{
//	    Scope:       &binder.Singleton,
//	    Intercepted: &intercepted,
//	})
func QueryRegistrations(m *Manifest, query RegistrationQuery) []RegistrationMatch {
	var results []RegistrationMatch

	_ = m.each(func(info Registration, collection bool) error {
		if query.matches(info, collection) {
			results = append(results, RegistrationMatch{Registration: info, Collection: collection})
		}
		return nil
	})

	return results
}

func (q RegistrationQuery) matches(info Registration, collection bool) bool {
	def := info.DefaultContext()

	if q.Scope != nil && !def.Scope().Equal(*q.Scope) {
		return false
	}
	if q.Kind != 0 && def.Target().Kind() != q.Kind {
		return false
	}
	if q.Intercepted != nil && info.Profile().IsEmpty() == *q.Intercepted {
		return false
	}
	if q.Collection != nil && collection != *q.Collection {
		return false
	}
	if q.ContextKind != 0 {
		found := false
		for _, ctx := range info.BindContexts() {
			if ctx.Kind() == q.ContextKind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// QueryServices returns the distinct service types matching query.
func QueryServices(m *Manifest, query RegistrationQuery) []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var services []reflect.Type

	for _, match := range QueryRegistrations(m, query) {
		t := match.Registration.ServiceType()
		if !seen[t] {
			seen[t] = true
			services = append(services, t)
		}
	}

	return services
}

// FindIntercepted returns registrations carrying interceptors.
func FindIntercepted(m *Manifest) []RegistrationMatch {
	intercepted := true
	return QueryRegistrations(m, RegistrationQuery{Intercepted: &intercepted})
}

// FindByScope returns registrations with the given lifetime.
func FindByScope(m *Manifest, scope ResolutionScope) []RegistrationMatch {
	return QueryRegistrations(m, RegistrationQuery{Scope: &scope})
}
