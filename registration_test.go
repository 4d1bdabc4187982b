package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelfRegistration(t *testing.T) {
	info, err := NewSelfRegistration(TypeOf[*englishGreeter]())
	require.NoError(t, err)

	assert.Equal(t, TypeOf[*englishGreeter](), info.ServiceType())
	assert.Equal(t, TypeOf[*englishGreeter](), info.ImplementationType())
	assert.True(t, info.Scope().IsTransient())
	assert.True(t, info.Profile().IsEmpty())
	assert.Len(t, info.BindContexts(), 1)

	_, err = NewSelfRegistration(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSelfRegistration(TypeOf[Greeter]())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewRegistration_Contexts(t *testing.T) {
	one, _ := NamedContext("one", TargetOf[*frenchGreeter](), Transient)
	two, _ := NamedContext("two", TargetOf[*shoutingGreeter](), Transient)
	param, _ := ParameterContext(TargetOf[*frenchGreeter](), InParameterOf(newGreeting, 0), Transient)
	prop, _ := PropertyContext(TargetOf[*frenchGreeter](), InFieldsOf(TypeOf[*mailer]()), Transient)

	info, err := NewRegistration(TypeOf[Greeter](), TargetOf[*englishGreeter](), Singleton, NoProfile, one, two, param, prop)
	require.NoError(t, err)

	contexts := info.BindContexts()
	require.Len(t, contexts, 5)
	assert.Equal(t, ContextDefault, contexts[0].Kind())
	assert.True(t, contexts[0].Scope().IsSingleton())
	assert.Equal(t, "one", contexts[1].Name())

	// The returned slice is a copy.
	contexts[0] = BindContext{}
	assert.Equal(t, ContextDefault, info.DefaultContext().Kind())
}

func TestNewRegistration_Conflicts(t *testing.T) {
	one, _ := NamedContext("one", TargetOf[*frenchGreeter](), Transient)
	oneAgain, _ := NamedContext("one", TargetOf[*shoutingGreeter](), Transient)
	param, _ := ParameterContext(TargetOf[*frenchGreeter](), InParameterOf(newGreeting, 0), Transient)
	prop, _ := PropertyContext(TargetOf[*frenchGreeter](), InFieldsOf(TypeOf[*mailer]()), Transient)
	def, _ := DefaultContext(TargetOf[*frenchGreeter](), Transient)

	tests := []struct {
		name     string
		contexts []BindContext
		want     error
	}{
		{"duplicate name", []BindContext{one, oneAgain}, ErrConflictingContexts},
		{"two parameter contexts", []BindContext{param, param}, ErrConflictingContexts},
		{"two property contexts", []BindContext{prop, prop}, ErrConflictingContexts},
		{"explicit default", []BindContext{def}, ErrInvalidArgument},
		{"zero context", []BindContext{{}}, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistration(TypeOf[Greeter](), TargetOf[*englishGreeter](), Transient, NoProfile, tt.contexts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRegistration_Incompatible(t *testing.T) {
	_, err := NewRegistration(TypeOf[Greeter](), TargetOf[*memStore](), Transient, NoProfile)
	assert.ErrorIs(t, err, ErrIncompatibleTypes)

	bad, _ := NamedContext("bad", TargetOf[*memStore](), Transient)
	_, err = NewRegistration(TypeOf[Greeter](), TargetOf[*englishGreeter](), Transient, NoProfile, bad)
	assert.ErrorIs(t, err, ErrIncompatibleTypes)

	_, err = NewRegistration(nil, TargetOf[*englishGreeter](), Transient, NoProfile)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewRegistration(TypeOf[Greeter](), BindTarget{}, Transient, NoProfile)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistration_Equal(t *testing.T) {
	profile, err := NewInterceptorProfile(&countingInterceptor{})
	require.NoError(t, err)

	a, err := NewRegistration(TypeOf[Greeter](), TargetOf[*englishGreeter](), Singleton, profile)
	require.NoError(t, err)
	b, err := NewRegistration(TypeOf[Greeter](), TargetOf[*englishGreeter](), Singleton, profile)
	require.NoError(t, err)
	c, err := NewRegistration(TypeOf[Greeter](), TargetOf[*englishGreeter](), Singleton, NoProfile)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, Registration{}.IsZero())
	assert.Contains(t, a.String(), "binder.Greeter")
}
