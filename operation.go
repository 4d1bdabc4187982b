package binder

import (
	"fmt"
	"reflect"
)

// Operation is the result-style calling convention: methods returning an
// Operation report failure as a value rather than an error. When an
// intercepted method declares an Operation result, errors and panics raised
// in the interceptor chain are converted into a failed value of the declared
// type.
type Operation interface {
	Succeeded() bool
	Err() error
}

// failable is implemented by operation types that can build their own
// failed value. It is called on the zero value of the declared type.
type failable interface {
	Operation
	failed(err error) Operation
}

var (
	operationType = reflect.TypeOf((*Operation)(nil)).Elem()
	failableType  = reflect.TypeOf((*failable)(nil)).Elem()
)

// Op is an Operation without a value.
type Op struct {
	err error
}

// Done returns a successful Op.
func Done() Op { return Op{} }

// FailOp returns a failed Op.
func FailOp(err error) Op { return Op{err: err} }

// Succeeded implements Operation.
func (o Op) Succeeded() bool { return o.err == nil }

// Err implements Operation.
func (o Op) Err() error { return o.err }

func (Op) failed(err error) Operation { return Op{err: err} }

// Result is an Operation carrying a value.
type Result[T any] struct {
	value T
	err   error
}

// Ok returns a successful Result.
func Ok[T any](value T) Result[T] { return Result[T]{value: value} }

// Fail returns a failed Result.
func Fail[T any](err error) Result[T] { return Result[T]{err: err} }

// Succeeded implements Operation.
func (r Result[T]) Succeeded() bool { return r.err == nil }

// Err implements Operation.
func (r Result[T]) Err() error { return r.err }

// Value returns the value, the zero value when failed.
func (r Result[T]) Value() T { return r.value }

// Unwrap returns the value and error as a pair.
func (r Result[T]) Unwrap() (T, error) { return r.value, r.err }

func (Result[T]) failed(err error) Operation { return Result[T]{err: err} }

// isOperationType reports whether t is, or implements, a recognized operation type.
func isOperationType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t == operationType {
		return true
	}
	return t.Implements(failableType)
}

// failedOperation builds a failed value of the declared type t.
func failedOperation(t reflect.Type, err error) (reflect.Value, bool) {
	if t == operationType {
		return reflect.ValueOf(FailOp(err)), true
	}
	if !t.Implements(failableType) {
		return reflect.Value{}, false
	}

	var zero reflect.Value
	if t.Kind() == reflect.Ptr {
		zero = reflect.New(t.Elem())
	} else {
		zero = reflect.Zero(t)
	}

	failed := reflect.ValueOf(zero.Interface().(failable).failed(err))
	switch {
	case failed.Type().AssignableTo(t):
		return failed, true
	case t.Kind() == reflect.Ptr && failed.Type().AssignableTo(t.Elem()):
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(failed)
		return ptr, true
	default:
		return reflect.Value{}, false
	}
}

// panicError turns a recovered panic value into an error.
func panicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", recovered)
}
