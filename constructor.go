package binder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	resolverType = reflect.TypeOf((*Resolver)(nil)).Elem()
)

// ParameterDescriptor describes a constructor parameter injection site.
type ParameterDescriptor struct {
	Function reflect.Type // The constructor function type
	Result   reflect.Type // The type the constructor produces
	Index    int          // Position in the parameter list
	Type     reflect.Type // The parameter type, i.e. the requested service
}

// PropertyDescriptor describes a struct field injection site.
type PropertyDescriptor struct {
	Owner reflect.Type // The struct type declaring the field
	Field reflect.StructField
	Name  string       // Field name
	Type  reflect.Type // Field type, i.e. the requested service
	Tag   reflect.StructTag
}

// constructorInfo holds analyzed constructor metadata
type constructorInfo struct {
	fn       reflect.Value
	fnType   reflect.Type
	result   reflect.Type
	params   []ParameterDescriptor
	hasError bool
}

// fieldInfo describes an injectable struct field
type fieldInfo struct {
	desc     PropertyDescriptor
	index    []int
	name     string // From `inject:"..."`, empty for the default context
	optional bool   // From `optional:"true"`
}

// analyzeConstructor inspects a constructor function and extracts its
// parameter sites. It must return (T) or (T, error).
func analyzeConstructor(constructor any) (*constructorInfo, error) {
	if constructor == nil {
		return nil, errNilArgument("constructor")
	}

	fnValue := reflect.ValueOf(constructor)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, errInvalidArgument("constructor", "must be a function")
	}
	if fnValue.IsNil() {
		return nil, errNilArgument("constructor")
	}
	if fnType.IsVariadic() {
		return nil, errInvalidArgument("constructor", "variadic constructors are not supported")
	}

	info := &constructorInfo{
		fn:     fnValue,
		fnType: fnType,
	}

	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, errInvalidArgument("constructor", "second result must be error")
		}
		info.hasError = true
	default:
		return nil, errInvalidArgument("constructor", "must return (T) or (T, error)")
	}

	info.result = fnType.Out(0)
	if info.result == errorType {
		return nil, errInvalidArgument("constructor", "must return at least one non-error value")
	}

	for i := 0; i < fnType.NumIn(); i++ {
		info.params = append(info.params, ParameterDescriptor{
			Function: fnType,
			Result:   info.result,
			Index:    i,
			Type:     fnType.In(i),
		})
	}

	return info, nil
}

// call invokes the constructor with resolved arguments.
func (c *constructorInfo) call(args []any) (any, error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, err := assignable(c.fnType.In(i), arg)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		in[i] = v
	}

	results := c.fn.Call(in)
	if c.hasError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}

	return results[0].Interface(), nil
}

// assignable converts value for a site of type t. A nil value becomes the
// zero value of t.
func assignable(t reflect.Type, value any) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, ErrTypeMismatch(t.String(), value)
	}
	return v, nil
}

// activatable reports whether a type target can be allocated by the container.
func activatable(t reflect.Type) error {
	switch {
	case t.Kind() == reflect.Struct:
		return nil
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		return nil
	default:
		return errInvalidArgument("implementation type", fmt.Sprintf("'%s' is not a struct or pointer to struct", t))
	}
}

// analyzeFields lists the injectable fields of an activatable type.
// A field is injected when it is exported and carries an `inject` tag.
func analyzeFields(t reflect.Type) ([]fieldInfo, error) {
	owner := t
	if owner.Kind() == reflect.Ptr {
		owner = owner.Elem()
	}

	var fields []fieldInfo

	for i := 0; i < owner.NumField(); i++ {
		field := owner.Field(i)

		name, ok := field.Tag.Lookup("inject")
		if !ok {
			continue
		}

		if !field.IsExported() {
			return nil, fmt.Errorf("field %s.%s with inject tag must be exported", owner, field.Name)
		}

		name = strings.TrimSpace(name)
		if name != "" && !contextNameRegexp.MatchString(name) {
			return nil, ErrInvalidName(name)
		}

		fields = append(fields, fieldInfo{
			desc: PropertyDescriptor{
				Owner: owner,
				Field: field,
				Name:  field.Name,
				Type:  field.Type,
				Tag:   field.Tag,
			},
			index:    field.Index,
			name:     name,
			optional: strings.ToLower(field.Tag.Get("optional")) == "true",
		})
	}

	return fields, nil
}

// allocate creates a zero instance of an activatable type. The returned
// value is addressable so that fields can be set.
func allocate(t reflect.Type) (result reflect.Value, settable reflect.Value, err error) {
	switch {
	case t.Kind() == reflect.Ptr:
		ptr := reflect.New(t.Elem())
		return ptr, ptr.Elem(), nil
	case t.Kind() == reflect.Struct:
		ptr := reflect.New(t)
		return ptr.Elem(), ptr.Elem(), nil
	default:
		return reflect.Value{}, reflect.Value{}, errors.New("type is not activatable")
	}
}
