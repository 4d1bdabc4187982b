package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegistrarOptions(t *testing.T) {
	cfg := defaultRegistrarConfig()
	require.NotNil(t, cfg.logger)
	require.NotNil(t, cfg.containers)
	require.NotNil(t, cfg.proxies)

	logger := zaptest.NewLogger(t)
	WithLogger(nil)(cfg)
	WithLogger(logger)(cfg)
	assert.Same(t, logger, cfg.logger)

	WithContainerFactory(nil)(cfg)
	assert.NotNil(t, cfg.containers)

	WithProxyGenerator(nil)(cfg)
	assert.Nil(t, cfg.proxies)

	mw := &FuncMiddleware{}
	WithMiddleware(mw)(cfg)
	WithMiddleware(mw)(cfg)
	assert.Len(t, cfg.middleware, 2)
}

func TestMergeOptions(t *testing.T) {
	cfg, err := mergeOptions(nil)
	require.NoError(t, err)
	assert.True(t, cfg.scope.IsTransient())
	assert.True(t, cfg.profile.IsEmpty())

	counter := &countingInterceptor{}
	named, err := NamedContext("one", TargetOf[*englishGreeter](), Transient)
	require.NoError(t, err)

	cfg, err = mergeOptions([]RegisterOption{
		AsSingleton(),
		nil,
		WithInterceptors(counter),
		WithContexts(named),
		AsScoped(),
	})
	require.NoError(t, err)
	assert.True(t, cfg.scope.Equal(DefaultScope), "the last scope option wins")
	assert.Equal(t, 1, cfg.profile.Len())
	assert.Len(t, cfg.contexts, 1)

	cfg, err = mergeOptions([]RegisterOption{WithInterceptors()})
	require.NoError(t, err)
	assert.True(t, cfg.profile.IsEmpty())
}

func TestMergeOptions_InvalidProfile(t *testing.T) {
	profile, err := NewInterceptorProfile(&countingInterceptor{})
	require.NoError(t, err)

	_, err = mergeOptions([]RegisterOption{WithProfile(profile), WithInterceptors(&countingInterceptor{})})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	_, err = mergeOptions([]RegisterOption{WithInterceptors(&countingInterceptor{}, nil)})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestRegistrar_WithContainerFactory(t *testing.T) {
	var built []ContainerConfig
	factory := func(cfg ContainerConfig) Container {
		built = append(built, cfg)
		return NewContainer(cfg)
	}

	mw := &FuncMiddleware{}
	r := newTestRegistrar(t, WithContainerFactory(factory), WithMiddleware(mw))
	require.NoError(t, RegisterType[Greeter, *englishGreeter](r))

	buildResolver(t, r)

	require.Len(t, built, 1)
	assert.NotNil(t, built[0].Logger)
	assert.NotNil(t, built[0].Resolver)
	assert.NotNil(t, built[0].Decorate)
	assert.Equal(t, []Middleware{mw}, built[0].Middleware)
}
