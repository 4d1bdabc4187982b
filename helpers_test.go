package binder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/errs"
)

func TestRegister_Self(t *testing.T) {
	r := newTestRegistrar(t)

	require.NoError(t, Register[*fixedClock](r, AsSingleton()))
	require.NoError(t, r.Register(TypeOf[*memStore]()))

	res := buildResolver(t, r)

	a, err := Resolve[*fixedClock](res)
	require.NoError(t, err)
	assert.Same(t, a, MustResolve[*fixedClock](res))

	_, err = Resolve[*memStore](res)
	assert.NoError(t, err)
}

func TestRegisterValue(t *testing.T) {
	r := newTestRegistrar(t)

	clock := &fixedClock{now: 7}
	require.NoError(t, RegisterValue[Clock](r, clock))

	info, ok := r.Manifest().RootRegistrationFor(TypeOf[Clock]())
	require.True(t, ok)
	assert.True(t, info.Scope().IsSingleton())

	res := buildResolver(t, r)

	got, err := Resolve[Clock](res)
	require.NoError(t, err)
	assert.Same(t, clock, got)
}

func TestRegistrarMethods(t *testing.T) {
	r := newTestRegistrar(t)

	require.NoError(t, r.RegisterImplementation(TypeOf[Greeter](), TypeOf[*englishGreeter]()))
	require.NoError(t, r.RegisterFactory(TypeOf[Clock](), TypeOf[*fixedClock](), func(Resolver) (any, error) {
		return &fixedClock{now: 3}, nil
	}))
	require.NoError(t, RegisterConstructor[*greeting](r, newGreeting))

	err := r.RegisterImplementation(TypeOf[Store](), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	err = r.RegisterConstructor(TypeOf[Store](), "not a function")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	res := buildResolver(t, r)

	g, err := Resolve[*greeting](res)
	require.NoError(t, err)
	assert.IsType(t, &englishGreeter{}, g.greeter)
	assert.Equal(t, int64(3), g.clock.Now())
}

func TestMustResolve_Panics(t *testing.T) {
	r := newTestRegistrar(t)
	res := buildResolver(t, r)

	assert.Panics(t, func() {
		MustResolve[Greeter](res)
	})
}

func TestTyped(t *testing.T) {
	g, err := typed[Greeter](&englishGreeter{})
	require.NoError(t, err)
	assert.NotNil(t, g)

	nilValue, err := typed[Greeter](nil)
	require.NoError(t, err)
	assert.Nil(t, nilValue)

	_, err = typed[Greeter](&memStore{})
	require.ErrorIs(t, err, ErrTypeMismatchSentinel)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "binder.Greeter", e.GetContext()["service"])
	assert.Equal(t, "*binder.memStore", e.GetContext()["actual_type"])
}

func TestResolveAll_Typed(t *testing.T) {
	r := newTestRegistrar(t)
	require.NoError(t, RegisterAll[Greeter](r, Transient, NoProfile,
		TargetOf[*englishGreeter](),
		TargetOf[*shoutingGreeter](),
	))

	res := buildResolver(t, r)

	greeters, err := ResolveAll[Greeter](res)
	require.NoError(t, err)
	require.Len(t, greeters, 2)
	assert.IsType(t, &englishGreeter{}, greeters[0])
	assert.IsType(t, &shoutingGreeter{}, greeters[1])

	missing, err := ResolveAll[Store](res)
	assert.ErrorIs(t, err, ErrServiceNotFoundSentinel)
	assert.Nil(t, missing)
}
