package binder

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/errs"
	"go.uber.org/zap/zaptest"
)

// Greeter is the interface most tests bind.
type Greeter interface {
	Greet(name string) (string, error)
}

type englishGreeter struct {
	calls int
}

func (g *englishGreeter) Greet(name string) (string, error) {
	g.calls++
	return "hello " + name, nil
}

type frenchGreeter struct{}

func (g *frenchGreeter) Greet(name string) (string, error) {
	return "bonjour " + name, nil
}

type shoutingGreeter struct{}

func (g *shoutingGreeter) Greet(name string) (string, error) {
	return "HELLO " + name, nil
}

var greetMethod = MethodOf[Greeter]("Greet")

// greeterProxy is a hand-written interface proxy.
type greeterProxy struct {
	h *ProxyHandler
}

func newGreeterProxy(h *ProxyHandler) Greeter {
	return &greeterProxy{h: h}
}

func (p *greeterProxy) Greet(name string) (string, error) {
	results, err := p.h.Invoke(greetMethod, name)
	if err != nil {
		return "", err
	}
	return ResultAt[string](results, 0), nil
}

// Calculator is proxied as a class.
type Calculator struct {
	adds int
}

func (c *Calculator) Add(a, b int) int {
	c.adds++
	return a + b
}

type adder interface {
	Add(a, b int) int
}

var addMethod = MethodOf[*Calculator]("Add")

type calculatorProxy struct {
	*Calculator
	h *ProxyHandler
}

func (p *calculatorProxy) Add(a, b int) int {
	results, err := p.h.Invoke(addMethod, a, b)
	if err != nil {
		panic(err)
	}
	return ResultAt[int](results, 0)
}

func newTestProxies(t *testing.T) *ProxyRegistry {
	t.Helper()
	proxies := NewProxyRegistry()
	require.NoError(t, RegisterProxy[Greeter](proxies, newGreeterProxy))
	require.NoError(t, proxies.Register(TypeOf[*Calculator](), func(h *ProxyHandler) any {
		return &calculatorProxy{Calculator: h.Target().(*Calculator), h: h}
	}))
	return proxies
}

type countingInterceptor struct {
	calls atomic.Int32
}

func (c *countingInterceptor) Intercept(inv *Invocation) ([]any, error) {
	c.calls.Add(1)
	return inv.Next()
}

type recordingInterceptor struct {
	name  string
	trace *[]string
}

func (r *recordingInterceptor) Intercept(inv *Invocation) ([]any, error) {
	*r.trace = append(*r.trace, r.name+":before")
	results, err := inv.Next()
	*r.trace = append(*r.trace, r.name+":after")
	return results, err
}

type Store interface {
	Get(key string) string
}

type memStore struct {
	data map[string]string
}

func (s *memStore) Get(key string) string {
	return s.data[key]
}

type Clock interface {
	Now() int64
}

type fixedClock struct {
	now int64
}

func (c *fixedClock) Now() int64 { return c.now }

// reportService is activated with field injection.
type reportService struct {
	Store Store `inject:""`
	Clock Clock `inject:"" optional:"true"`
}

type mailer struct {
	Primary   Greeter `inject:""`
	Secondary Greeter `inject:"french"`
	Special   Greeter `inject:""`
}

type greeting struct {
	greeter Greeter
	clock   Clock
}

func newGreeting(g Greeter, c Clock) *greeting {
	return &greeting{greeter: g, clock: c}
}

type disposableService struct {
	name     string
	order    *[]string
	disposed bool
}

func (d *disposableService) Dispose() error {
	d.disposed = true
	if d.order != nil {
		*d.order = append(*d.order, d.name)
	}
	return nil
}

// mockService implements di.Service.
type mockService struct {
	name     string
	started  bool
	stopped  bool
	startErr error
	stopErr  error
}

func (m *mockService) Name() string                     { return m.name }
func (m *mockService) Health(ctx context.Context) error { return nil }

func (m *mockService) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *mockService) Stop(ctx context.Context) error {
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped = true
	return nil
}

func newTestContainer(t *testing.T) *containerImpl {
	t.Helper()
	return newContainerImpl(ContainerConfig{Logger: zaptest.NewLogger(t)})
}

func factoryOf[R any](t *testing.T, fn func(Resolver) (R, error)) BindTarget {
	t.Helper()
	target, err := FactoryTarget(fn)
	require.NoError(t, err)
	return target
}

func TestContainer_RegisterType_Transient(t *testing.T) {
	c := newTestContainer(t)

	require.NoError(t, c.RegisterType(TypeOf[Greeter](), TypeOf[*englishGreeter](), Transient))
	require.NoError(t, c.Verify())

	a, err := c.Resolve(TypeOf[Greeter]())
	require.NoError(t, err)
	b, err := c.Resolve(TypeOf[Greeter]())
	require.NoError(t, err)

	assert.IsType(t, &englishGreeter{}, a)
	assert.NotSame(t, a, b)
}

func TestContainer_RegisterType_Singleton(t *testing.T) {
	c := newTestContainer(t)

	require.NoError(t, c.RegisterType(TypeOf[Greeter](), TypeOf[*englishGreeter](), Singleton))

	a, err := c.Resolve(TypeOf[Greeter]())
	require.NoError(t, err)
	b, err := c.Resolve(TypeOf[Greeter]())
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestContainer_RegisterType_StructValue(t *testing.T) {
	type settings struct {
		Clock Clock `inject:""`
	}

	c := newTestContainer(t)
	require.NoError(t, c.RegisterType(TypeOf[settings](), TypeOf[settings](), Transient))
	require.NoError(t, c.RegisterFactory(TypeOf[Clock](), factoryOf(t, func(Resolver) (*fixedClock, error) {
		return &fixedClock{now: 7}, nil
	}), Singleton))

	v, err := c.Resolve(TypeOf[settings]())
	require.NoError(t, err)

	s, ok := v.(settings)
	require.True(t, ok)
	assert.Equal(t, int64(7), s.Clock.Now())
}

func TestContainer_RegisterFactory_RejectsTypeTarget(t *testing.T) {
	c := newTestContainer(t)

	err := c.RegisterFactory(TypeOf[Greeter](), TargetOf[*englishGreeter](), Transient)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestContainer_RegisterType_Incompatible(t *testing.T) {
	c := newTestContainer(t)

	err := c.RegisterType(TypeOf[Greeter](), TypeOf[*memStore](), Transient)
	assert.ErrorIs(t, err, ErrIncompatibleTypes)
}

func TestContainer_RegisterType_Duplicate(t *testing.T) {
	c := newTestContainer(t)

	require.NoError(t, c.RegisterType(TypeOf[Greeter](), TypeOf[*englishGreeter](), Transient))
	err := c.RegisterType(TypeOf[Greeter](), TypeOf[*frenchGreeter](), Transient)
	assert.ErrorIs(t, err, ErrDuplicateRegistration)
}

func TestContainer_RegisterAfterVerify(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.Verify())

	err := c.RegisterType(TypeOf[Greeter](), TypeOf[*englishGreeter](), Transient)
	assert.ErrorIs(t, err, ErrRegistrationClosed)
	assert.True(t, IsLifecycleError(err))
}

func TestContainer_Resolve_NotFound(t *testing.T) {
	c := newTestContainer(t)

	_, err := c.Resolve(TypeOf[Greeter]())
	assert.ErrorIs(t, err, ErrServiceNotFoundSentinel)
	assert.Contains(t, err.Error(), "binder.Greeter")
}

func TestContainer_Resolve_FactoryError(t *testing.T) {
	c := newTestContainer(t)
	expectedErr := errors.New("factory error")

	require.NoError(t, c.RegisterFactory(TypeOf[Greeter](), factoryOf(t, func(Resolver) (Greeter, error) {
		return nil, expectedErr
	}), Transient))

	_, err := c.Resolve(TypeOf[Greeter]())
	require.Error(t, err)

	var serviceErr *errs.Error
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "binder.Greeter", serviceErr.GetContext()["service"])
	assert.ErrorIs(t, serviceErr.Cause(), expectedErr)
	assert.ErrorIs(t, err, expectedErr)
}

func TestContainer_ResolveNamed(t *testing.T) {
	c := newTestContainer(t)

	named, err := NamedContext("french", TargetOf[*frenchGreeter](), Singleton)
	require.NoError(t, err)

	require.NoError(t, c.RegisterType(TypeOf[Greeter](), TypeOf[*englishGreeter](), Transient))
	require.NoError(t, c.RegisterContext(TypeOf[Greeter](), named))

	v, err := c.ResolveNamed(TypeOf[Greeter](), "french")
	require.NoError(t, err)
	assert.IsType(t, &frenchGreeter{}, v)

	_, err = c.ResolveNamed(TypeOf[Greeter](), "german")
	assert.ErrorIs(t, err, ErrServiceNotFoundSentinel)

	_, err = c.ResolveNamed(TypeOf[Greeter](), "not-valid")
	assert.ErrorIs(t, err, ErrInvalidContextName)
}

func TestContainer_RegisterContext_ConflictingConditional(t *testing.T) {
	c := newTestContainer(t)

	first, err := PropertyContext(TargetOf[*frenchGreeter](), InFieldsOf(TypeOf[*mailer]()), Transient)
	require.NoError(t, err)
	second, err := PropertyContext(TargetOf[*shoutingGreeter](), InField(TypeOf[*mailer](), "Special"), Transient)
	require.NoError(t, err)

	require.NoError(t, c.RegisterContext(TypeOf[Greeter](), first))
	err = c.RegisterContext(TypeOf[Greeter](), second)
	assert.ErrorIs(t, err, ErrConflictingContexts)
}

func TestContainer_FieldInjection(t *testing.T) {
	c := newTestContainer(t)

	require.NoError(t, c.RegisterType(TypeOf[*reportService](), TypeOf[*reportService](), Transient))
	require.NoError(t, c.RegisterFactory(TypeOf[Store](), factoryOf(t, func(Resolver) (*memStore, error) {
		return &memStore{data: map[string]string{"k": "v"}}, nil
	}), Singleton))
	require.NoError(t, c.Verify())

	v, err := c.Resolve(TypeOf[*reportService]())
	require.NoError(t, err)

	svc := v.(*reportService)
	require.NotNil(t, svc.Store)
	assert.Equal(t, "v", svc.Store.Get("k"))
	assert.Nil(t, svc.Clock, "optional field without a binding stays nil")
}

func TestContainer_SliceInjectionFromCollection(t *testing.T) {
	type broadcaster struct {
		Greeters []Greeter `inject:""`
	}

	c := newTestContainer(t)
	require.NoError(t, c.RegisterType(TypeOf[*broadcaster](), TypeOf[*broadcaster](), Transient))
	require.NoError(t, c.RegisterCollectionEntry(TypeOf[Greeter](), TargetOf[*englishGreeter](), Transient))
	require.NoError(t, c.RegisterCollectionEntry(TypeOf[Greeter](), TargetOf[*frenchGreeter](), Transient))
	require.NoError(t, c.Verify())

	v, err := c.Resolve(TypeOf[*broadcaster]())
	require.NoError(t, err)

	b := v.(*broadcaster)
	require.Len(t, b.Greeters, 2)
	assert.IsType(t, &englishGreeter{}, b.Greeters[0])
	assert.IsType(t, &frenchGreeter{}, b.Greeters[1])
}

func TestContainer_Resolve_FallsBackToFirstCollectionEntry(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.RegisterCollectionEntry(TypeOf[Greeter](), TargetOf[*frenchGreeter](), Transient))
	require.NoError(t, c.RegisterCollectionEntry(TypeOf[Greeter](), TargetOf[*englishGreeter](), Transient))

	v, err := c.Resolve(TypeOf[Greeter]())
	require.NoError(t, err)
	assert.IsType(t, &frenchGreeter{}, v)

	all, err := c.ResolveAll(TypeOf[Clock]())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestContainer_ConstructorResolverParameter(t *testing.T) {
	c := newTestContainer(t)

	var got Resolver
	target, err := ConstructorTarget(func(r Resolver) *greeting {
		got = r
		return &greeting{}
	})
	require.NoError(t, err)

	require.NoError(t, c.RegisterFactory(TypeOf[*greeting](), target, Transient))
	require.NoError(t, c.Verify())

	_, err = c.Resolve(TypeOf[*greeting]())
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestContainer_Verify_MissingDependency(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.RegisterType(TypeOf[*reportService](), TypeOf[*reportService](), Transient))

	err := c.Verify()
	assert.ErrorIs(t, err, ErrServiceNotFoundSentinel)

	// Still open after a failed verification.
	assert.NoError(t, c.RegisterType(TypeOf[Store](), TypeOf[*memStore](), Singleton))
	assert.NoError(t, c.Verify())
}

type cycleA struct {
	B *cycleB `inject:""`
}

type cycleB struct {
	A *cycleA `inject:""`
}

func TestContainer_Verify_Cycle(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.RegisterType(TypeOf[*cycleA](), TypeOf[*cycleA](), Transient))
	require.NoError(t, c.RegisterType(TypeOf[*cycleB](), TypeOf[*cycleB](), Transient))

	err := c.Verify()
	require.ErrorIs(t, err, ErrCircularDependencySentinel)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"*binder.cycleA", "*binder.cycleB", "*binder.cycleA"}, e.GetContext()["cycle"])
}

func TestContainer_RuntimeCycle(t *testing.T) {
	c := newTestContainer(t)

	require.NoError(t, c.RegisterFactory(TypeOf[Greeter](), factoryOf(t, func(r Resolver) (Greeter, error) {
		v, err := r.Resolve(TypeOf[Greeter]())
		if err != nil {
			return nil, err
		}
		return v.(Greeter), nil
	}), Transient))

	_, err := c.Resolve(TypeOf[Greeter]())
	assert.ErrorIs(t, err, ErrCircularDependencySentinel)
}

func TestContainer_BeginScope_RejectsUnscopedKinds(t *testing.T) {
	c := newTestContainer(t)

	_, err := c.BeginScope(Transient)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = c.BeginScope(Singleton)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestContainer_Dispose_ReverseOrder(t *testing.T) {
	c := newTestContainer(t)
	var order []string

	first := &disposableService{name: "first", order: &order}
	second := &disposableService{name: "second", order: &order}

	require.NoError(t, c.RegisterFactory(TypeOf[*disposableService](), factoryOf(t, func(Resolver) (*disposableService, error) {
		return first, nil
	}), Singleton))
	named, err := NamedContext("second", factoryOf(t, func(Resolver) (*disposableService, error) {
		return second, nil
	}), Singleton)
	require.NoError(t, err)
	require.NoError(t, c.RegisterContext(TypeOf[*disposableService](), named))

	_, err = c.Resolve(TypeOf[*disposableService]())
	require.NoError(t, err)
	_, err = c.ResolveNamed(TypeOf[*disposableService](), "second")
	require.NoError(t, err)

	require.NoError(t, c.Dispose())
	assert.Equal(t, []string{"second", "first"}, order)

	// Second dispose is a no-op.
	assert.NoError(t, c.Dispose())
	assert.Len(t, order, 2)

	_, err = c.Resolve(TypeOf[*disposableService]())
	assert.ErrorIs(t, err, ErrResolverDisposed)
}

func TestContainer_Dispose_StopsServices(t *testing.T) {
	c := newTestContainer(t)
	svc := &mockService{name: "svc"}
	broken := &mockService{name: "broken", stopErr: errors.New("stop failed")}

	require.NoError(t, c.RegisterFactory(TypeOf[*mockService](), factoryOf(t, func(Resolver) (*mockService, error) {
		return svc, nil
	}), Singleton))
	named, err := NamedContext("broken", factoryOf(t, func(Resolver) (*mockService, error) {
		return broken, nil
	}), Singleton)
	require.NoError(t, err)
	require.NoError(t, c.RegisterContext(TypeOf[*mockService](), named))

	_, err = c.Resolve(TypeOf[*mockService]())
	require.NoError(t, err)
	_, err = c.ResolveNamed(TypeOf[*mockService](), "broken")
	require.NoError(t, err)

	assert.True(t, svc.started, "singletons are started on activation")
	assert.True(t, broken.started)

	err = c.Dispose()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop failed")
	assert.True(t, svc.stopped)
}

func TestContainer_StartsScopedServices(t *testing.T) {
	c := newTestContainer(t)
	var created []*mockService

	require.NoError(t, c.RegisterFactory(TypeOf[*mockService](), factoryOf(t, func(Resolver) (*mockService, error) {
		svc := &mockService{name: "scoped"}
		created = append(created, svc)
		return svc, nil
	}), DefaultScope))

	s, err := c.BeginScope(DefaultScope)
	require.NoError(t, err)
	v, err := s.Resolve(TypeOf[*mockService]())
	require.NoError(t, err)

	svc := v.(*mockService)
	assert.True(t, svc.started)
	assert.False(t, svc.stopped)

	require.NoError(t, s.End())
	assert.True(t, svc.stopped)
	assert.Len(t, created, 1)
}

func TestContainer_StartFailure(t *testing.T) {
	c := newTestContainer(t)
	startErr := errors.New("port in use")

	require.NoError(t, c.RegisterFactory(TypeOf[*mockService](), factoryOf(t, func(Resolver) (*mockService, error) {
		return &mockService{name: "svc", startErr: startErr}, nil
	}), Singleton))

	_, err := c.Resolve(TypeOf[*mockService]())
	require.Error(t, err)
	assert.ErrorIs(t, err, startErr)
	assert.Contains(t, err.Error(), "start")
}

func TestContainer_TransientServicesAreNotStarted(t *testing.T) {
	c := newTestContainer(t)
	svc := &mockService{name: "svc"}

	require.NoError(t, c.RegisterFactory(TypeOf[*mockService](), factoryOf(t, func(Resolver) (*mockService, error) {
		return svc, nil
	}), Transient))

	_, err := c.Resolve(TypeOf[*mockService]())
	require.NoError(t, err)
	assert.False(t, svc.started)
}

func TestContainer_ConcurrentSingleton(t *testing.T) {
	c := newTestContainer(t)
	var created atomic.Int32

	require.NoError(t, c.RegisterFactory(TypeOf[Greeter](), factoryOf(t, func(Resolver) (*englishGreeter, error) {
		created.Add(1)
		return &englishGreeter{}, nil
	}), Singleton))

	var wg sync.WaitGroup
	results := make([]any, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Resolve(TypeOf[Greeter]())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}

func TestContainer_DecorateInjectedDependencies(t *testing.T) {
	var decorated []reflect.Type
	c := newContainerImpl(ContainerConfig{
		Logger: zaptest.NewLogger(t),
		Decorate: func(serviceType reflect.Type, instance any) (any, error) {
			decorated = append(decorated, serviceType)
			return instance, nil
		},
	})

	require.NoError(t, c.RegisterType(TypeOf[*reportService](), TypeOf[*reportService](), Transient))
	require.NoError(t, c.RegisterType(TypeOf[Store](), TypeOf[*memStore](), Transient))

	_, err := c.Resolve(TypeOf[*reportService]())
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{TypeOf[Store]()}, decorated)
}
