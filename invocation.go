package binder

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Interceptor runs around an intercepted method call. It may inspect or
// change the arguments, short-circuit by returning without calling Next, or
// call Next and post-process the results.
//
// Results hold the method's return values without the trailing error.
type Interceptor interface {
	Intercept(inv *Invocation) ([]any, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(inv *Invocation) ([]any, error)

// Intercept implements Interceptor.
func (f InterceptorFunc) Intercept(inv *Invocation) ([]any, error) {
	return f(inv)
}

// TargetSource produces the real target on first use.
type TargetSource func() (any, error)

// Method describes an intercepted method.
type Method struct {
	Name          string
	Type          reflect.Type // Func type of the method, without receiver
	DeclaringType reflect.Type
}

// MethodOf describes method name of T. It panics if T has no such method;
// call it once when building a proxy type.
func MethodOf[T any](name string) Method {
	t := TypeOf[T]()
	m, ok := t.MethodByName(name)
	if !ok {
		panic(fmt.Sprintf("binder: type %s has no method %s", t, name))
	}

	fnType := m.Type
	if t.Kind() != reflect.Interface {
		// Strip the receiver from concrete method signatures.
		in := make([]reflect.Type, 0, fnType.NumIn()-1)
		for i := 1; i < fnType.NumIn(); i++ {
			in = append(in, fnType.In(i))
		}
		out := make([]reflect.Type, 0, fnType.NumOut())
		for i := 0; i < fnType.NumOut(); i++ {
			out = append(out, fnType.Out(i))
		}
		fnType = reflect.FuncOf(in, out, fnType.IsVariadic())
	}

	return Method{Name: name, Type: fnType, DeclaringType: t}
}

// returnsError reports whether the method's last result is error.
func (m Method) returnsError() bool {
	n := m.Type.NumOut()
	return n > 0 && m.Type.Out(n-1) == errorType
}

// operationResult returns the index of the first non-error result when it is
// an operation type.
func (m Method) operationResult() (int, reflect.Type, bool) {
	if m.Type == nil || m.Type.NumOut() == 0 {
		return 0, nil, false
	}
	t := m.Type.Out(0)
	if t == errorType || !isOperationType(t) {
		return 0, nil, false
	}
	return 0, t, true
}

func (m Method) String() string {
	return fmt.Sprintf("%s.%s", typeName(m.DeclaringType), m.Name)
}

// lazyTarget resolves the target once and shares it across the chain.
type lazyTarget struct {
	once    sync.Once
	factory TargetSource
	value   any
	err     error
	done    atomic.Bool
}

func (l *lazyTarget) get() (any, error) {
	l.once.Do(func() {
		if l.factory == nil {
			l.err = errNilArgument("target factory")
			return
		}
		l.value, l.err = l.factory()
		l.done.Store(true)
	})
	return l.value, l.err
}

func (l *lazyTarget) resolved() bool {
	return l.done.Load()
}

// Invocation is one position of an interceptor chain. Each call to Next
// builds a fresh Invocation for the following position with a copy of the
// current arguments, so later mutations never leak backwards.
type Invocation struct {
	method       Method
	proxy        any
	arguments    []any
	genericArgs  []reflect.Type
	target       *lazyTarget
	interceptors []Interceptor
	position     int
}

// Method returns the intercepted method.
func (inv *Invocation) Method() Method { return inv.method }

// Proxy returns the proxy the call was made on.
func (inv *Invocation) Proxy() any { return inv.proxy }

// Arguments returns this position's argument snapshot. Changes made to it
// before Next are seen by the rest of the chain.
func (inv *Invocation) Arguments() []any { return inv.arguments }

// Argument returns argument i.
func (inv *Invocation) Argument(i int) any { return inv.arguments[i] }

// SetArgument replaces argument i.
func (inv *Invocation) SetArgument(i int, value any) { inv.arguments[i] = value }

// GenericArguments returns the type arguments of the call, if any.
func (inv *Invocation) GenericArguments() []reflect.Type { return inv.genericArgs }

// Target resolves the real target on first access.
func (inv *Invocation) Target() (any, error) { return inv.target.get() }

// TargetResolved reports whether any position of the chain has resolved the target.
func (inv *Invocation) TargetResolved() bool { return inv.target.resolved() }

// HasNext reports whether another interceptor follows this one.
func (inv *Invocation) HasNext() bool { return inv.position+1 < len(inv.interceptors) }

// Position returns the index of the interceptor handling this invocation.
func (inv *Invocation) Position() int { return inv.position }

// Next continues the chain. After the last interceptor it invokes the real
// method on the target with the current arguments.
func (inv *Invocation) Next() ([]any, error) {
	next := &Invocation{
		method:       inv.method,
		proxy:        inv.proxy,
		arguments:    append([]any(nil), inv.arguments...),
		genericArgs:  append([]reflect.Type(nil), inv.genericArgs...),
		target:       inv.target,
		interceptors: inv.interceptors,
		position:     inv.position + 1,
	}
	return next.proceed()
}

func (inv *Invocation) proceed() ([]any, error) {
	if inv.position < len(inv.interceptors) {
		return inv.interceptors[inv.position].Intercept(inv)
	}
	return inv.invokeTarget()
}

// invokeTarget calls the real method by reflection.
func (inv *Invocation) invokeTarget() ([]any, error) {
	target, err := inv.Target()
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errNilArgument("target")
	}

	fn := reflect.ValueOf(target).MethodByName(inv.method.Name)
	if !fn.IsValid() {
		return nil, fmt.Errorf("target %T has no method %s", target, inv.method.Name)
	}

	fnType := fn.Type()
	in := make([]reflect.Value, len(inv.arguments))
	for i, arg := range inv.arguments {
		var paramType reflect.Type
		if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
			paramType = fnType.In(fnType.NumIn() - 1).Elem()
		} else {
			paramType = fnType.In(i)
		}
		if arg == nil {
			in[i] = reflect.Zero(paramType)
		} else {
			in[i] = reflect.ValueOf(arg)
		}
	}

	out := fn.Call(in)

	results := make([]any, 0, len(out))
	for i, v := range out {
		if i == len(out)-1 && fnType.Out(i) == errorType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			break
		}
		results = append(results, v.Interface())
	}

	return results, err
}

// Intercept drives a call through interceptors. It is the entry point used by
// proxies. When the method's first result is an operation type, any error or
// panic from the chain is returned as a failed value of that type with a nil
// error; otherwise errors are returned and panics re-raised unchanged.
func Intercept(
	method Method,
	proxy any,
	target TargetSource,
	arguments []any,
	genericArguments []reflect.Type,
	interceptors []Interceptor,
) (results []any, err error) {
	if method.Type == nil {
		return nil, errNilArgument("method")
	}

	root := &Invocation{
		method:       method,
		proxy:        proxy,
		arguments:    append([]any(nil), arguments...),
		genericArgs:  append([]reflect.Type(nil), genericArguments...),
		target:       &lazyTarget{factory: target},
		interceptors: interceptors,
	}

	index, opType, converts := method.operationResult()

	if converts {
		defer func() {
			if recovered := recover(); recovered != nil {
				results, err = convertFailure(method, index, opType, panicError(recovered))
			}
		}()
	}

	results, err = root.proceed()
	if err != nil && converts {
		return convertFailure(method, index, opType, err)
	}

	return results, err
}

// convertFailure builds the results of a method whose operation result failed.
func convertFailure(method Method, index int, opType reflect.Type, cause error) ([]any, error) {
	failed, ok := failedOperation(opType, cause)
	if !ok {
		return nil, cause
	}

	n := method.Type.NumOut()
	if method.returnsError() {
		n--
	}

	results := make([]any, n)
	for i := 0; i < n; i++ {
		if i == index {
			results[i] = failed.Interface()
			continue
		}
		results[i] = reflect.Zero(method.Type.Out(i)).Interface()
	}

	return results, nil
}

// ResultAt returns results[i] as T, or the zero value of T when absent or nil.
// Proxies use it to unpack the values returned by Intercept.
func ResultAt[T any](results []any, i int) T {
	var zero T
	if i >= len(results) || results[i] == nil {
		return zero
	}
	v, ok := results[i].(T)
	if !ok {
		return zero
	}
	return v
}
