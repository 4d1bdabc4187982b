package binder

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"reflect"
)

// InterceptorProfile is an ordered list of interceptors attached to a
// registration. The zero value means "no interception".
type InterceptorProfile struct {
	interceptors []Interceptor
}

// NoProfile disables interception.
var NoProfile = InterceptorProfile{}

// NewInterceptorProfile builds a profile. The list must be non-empty and must
// not contain nil. Repeated occurrences of the same interceptor are dropped.
func NewInterceptorProfile(interceptors ...Interceptor) (InterceptorProfile, error) {
	if len(interceptors) == 0 {
		return InterceptorProfile{}, errProfile("requires at least one interceptor")
	}

	list := make([]Interceptor, 0, len(interceptors))
	for i, ic := range interceptors {
		if isNilInterceptor(ic) {
			return InterceptorProfile{}, errProfile(fmt.Sprintf("interceptor %d is nil", i))
		}
		if containsInterceptor(list, ic) {
			continue
		}
		list = append(list, ic)
	}

	return InterceptorProfile{interceptors: list}, nil
}

// Interceptors returns a copy of the interceptor list.
func (p InterceptorProfile) Interceptors() []Interceptor {
	out := make([]Interceptor, len(p.interceptors))
	copy(out, p.interceptors)
	return out
}

// Len returns the number of interceptors.
func (p InterceptorProfile) Len() int { return len(p.interceptors) }

// IsEmpty reports whether the profile disables interception.
func (p InterceptorProfile) IsEmpty() bool { return len(p.interceptors) == 0 }

// Equal reports whether both profiles hold the same interceptors in the same order.
func (p InterceptorProfile) Equal(other InterceptorProfile) bool {
	if len(p.interceptors) != len(other.interceptors) {
		return false
	}
	for i := range p.interceptors {
		if !sameInterceptor(p.interceptors[i], other.interceptors[i]) {
			return false
		}
	}
	return true
}

// Hash is consistent with Equal.
func (p InterceptorProfile) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, ic := range p.interceptors {
		_, _ = h.Write([]byte(reflect.TypeOf(ic).String()))
		binary.LittleEndian.PutUint64(buf[:], uint64(identity(ic)))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func isNilInterceptor(ic Interceptor) bool {
	if ic == nil {
		return true
	}
	v := reflect.ValueOf(ic)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// identity returns the pointer identity of reference-like interceptors, 0 otherwise.
func identity(ic Interceptor) uintptr {
	v := reflect.ValueOf(ic)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return v.Pointer()
	default:
		return 0
	}
}

func sameInterceptor(a, b Interceptor) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if id := identity(a); id != 0 {
		return id == identity(b)
	}
	if ta.Comparable() {
		return a == b
	}
	return false
}

func containsInterceptor(list []Interceptor, ic Interceptor) bool {
	for _, existing := range list {
		if sameInterceptor(existing, ic) {
			return true
		}
	}
	return false
}
