package binder

import "reflect"

// InParameterOf selects parameter index of the constructor function fn.
//
// Usage:
//
//	pred := binder.InParameterOf(NewReportService, 1)
//	ctx, err := binder.ParameterContext(binder.TargetOf[*csvWriter](), pred, binder.Transient)
func InParameterOf(fn any, index int) ParameterPredicate {
	fnType := reflect.TypeOf(fn)
	return func(d ParameterDescriptor) bool {
		return d.Function == fnType && d.Index == index
	}
}

// InParametersOf selects every parameter of constructors producing result.
func InParametersOf(result reflect.Type) ParameterPredicate {
	return func(d ParameterDescriptor) bool {
		return d.Result == result
	}
}

// InParametersProducing is InParametersOf for type T.
func InParametersProducing[T any]() ParameterPredicate {
	return InParametersOf(TypeOf[T]())
}

// InField selects the field named field of struct type owner. A pointer
// owner is dereferenced.
//
// Usage:
//
//	pred := binder.InField(binder.TypeOf[*Mailer](), "Transport")
//	ctx, err := binder.PropertyContext(binder.TargetOf[*smtpTransport](), pred, binder.Singleton)
func InField(owner reflect.Type, field string) PropertyPredicate {
	if owner != nil && owner.Kind() == reflect.Ptr {
		owner = owner.Elem()
	}
	return func(d PropertyDescriptor) bool {
		return d.Owner == owner && d.Name == field
	}
}

// InFieldsOf selects every injected field of owner.
func InFieldsOf(owner reflect.Type) PropertyPredicate {
	if owner != nil && owner.Kind() == reflect.Ptr {
		owner = owner.Elem()
	}
	return func(d PropertyDescriptor) bool {
		return d.Owner == owner
	}
}

// InFieldsTagged selects fields whose struct tag key equals value.
//
// Usage:
//
//	type Exporter struct {
//	    Sink Sink `inject:"" sink:"archive"`
//	}
//	pred := binder.InFieldsTagged("sink", "archive")
func InFieldsTagged(key, value string) PropertyPredicate {
	return func(d PropertyDescriptor) bool {
		got, ok := d.Tag.Lookup(key)
		return ok && got == value
	}
}
