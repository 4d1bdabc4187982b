package binder

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeInvalidArgument indicates a nil or malformed registration input
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// CodeInvalidContextName indicates a named context with a malformed name
	CodeInvalidContextName = "INVALID_CONTEXT_NAME"

	// CodeConflictingContexts indicates two bind contexts of the same kind collide
	CodeConflictingContexts = "CONFLICTING_CONTEXTS"

	// CodeInvalidProfile indicates an empty interceptor list or a nil interceptor
	CodeInvalidProfile = "INVALID_PROFILE"

	// CodeDuplicateRegistration indicates a second root registration for a service
	CodeDuplicateRegistration = "DUPLICATE_REGISTRATION"

	// CodeIncompatibleTypes indicates an implementation not assignable to its service
	CodeIncompatibleTypes = "INCOMPATIBLE_TYPES"

	// CodeInvalidManifestMapping indicates the container and manifest disagree
	CodeInvalidManifestMapping = "INVALID_MANIFEST_MAPPING"

	// CodeRegistrationClosed indicates a mutation after the resolver was built
	CodeRegistrationClosed = "REGISTRATION_CLOSED"

	// CodeServiceNotFound indicates a service was not found in the container
	CodeServiceNotFound = "SERVICE_NOT_FOUND"

	// CodeCannotProxy indicates the proxy generator cannot wrap a service type
	CodeCannotProxy = "CANNOT_PROXY"

	// CodeCircularDependency indicates a circular dependency was detected
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"

	// CodeScopeEnded indicates operation on an ended scope
	CodeScopeEnded = "SCOPE_ENDED"

	// CodeScopeNotFound indicates no open scope can hold a scoped instance
	CodeScopeNotFound = "SCOPE_NOT_FOUND"

	// CodeResolverDisposed indicates use of a disposed resolver
	CodeResolverDisposed = "RESOLVER_DISPOSED"

	// CodeServiceError indicates an error occurred during service activation
	CodeServiceError = "SERVICE_ERROR"

	// CodeTypeMismatch indicates a type mismatch during service resolution
	CodeTypeMismatch = "TYPE_MISMATCH"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrInvalidArgument is a sentinel for nil or malformed inputs.
var ErrInvalidArgument = errs.NewError(CodeInvalidArgument, "invalid argument", nil)

// ErrInvalidContextName is a sentinel for malformed context names.
var ErrInvalidContextName = errs.NewError(CodeInvalidContextName, "invalid context name", nil)

// ErrConflictingContexts is a sentinel for colliding bind contexts.
var ErrConflictingContexts = errs.NewError(CodeConflictingContexts, "conflicting bind contexts", nil)

// ErrInvalidProfile is a sentinel for malformed interceptor profiles.
var ErrInvalidProfile = errs.NewError(CodeInvalidProfile, "invalid interceptor profile", nil)

// ErrDuplicateRegistration is a sentinel for root registration collisions.
var ErrDuplicateRegistration = errs.NewError(CodeDuplicateRegistration, "duplicate registration", nil)

// ErrIncompatibleTypes is a sentinel for service/implementation mismatches.
var ErrIncompatibleTypes = errs.NewError(CodeIncompatibleTypes, "incompatible types", nil)

// ErrInvalidManifestMapping is a sentinel for container/manifest desync.
var ErrInvalidManifestMapping = errs.NewError(CodeInvalidManifestMapping, "invalid manifest registration mapping", nil)

// ErrRegistrationClosed is returned when registering after BuildResolver.
var ErrRegistrationClosed = errs.NewError(CodeRegistrationClosed, "registration is closed", nil)

// ErrServiceNotFoundSentinel is a sentinel error for service not found (for error checking).
var ErrServiceNotFoundSentinel = errs.NewError(CodeServiceNotFound, "service not found", nil)

// ErrCannotProxySentinel is a sentinel for proxy generation failures.
var ErrCannotProxySentinel = errs.NewError(CodeCannotProxy, "cannot proxy type", nil)

// ErrCircularDependencySentinel is a sentinel error for circular dependency (for error checking).
var ErrCircularDependencySentinel = errs.NewError(CodeCircularDependency, "circular dependency", nil)

// ErrScopeEnded is returned when operations are attempted on an ended scope.
var ErrScopeEnded = errs.NewError(CodeScopeEnded, "scope has ended", nil)

// ErrScopeNotFoundSentinel is a sentinel for scoped resolution without a matching scope.
var ErrScopeNotFoundSentinel = errs.NewError(CodeScopeNotFound, "scope not found", nil)

// ErrResolverDisposed is returned when resolving from a disposed resolver.
var ErrResolverDisposed = errs.NewError(CodeResolverDisposed, "resolver has been disposed", nil)

// ErrTypeMismatchSentinel is a sentinel error for type mismatch during resolution.
var ErrTypeMismatchSentinel = errs.NewError(CodeTypeMismatch, "type mismatch", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// errNilArgument creates an error for a nil required input
func errNilArgument(argument string) *errs.Error {
	return errs.NewError(
		CodeInvalidArgument,
		fmt.Sprintf("%s cannot be nil", argument),
		nil,
	).WithContext("argument", argument).(*errs.Error)
}

// errInvalidArgument creates an error for a malformed input
func errInvalidArgument(argument, reason string) *errs.Error {
	return errs.NewError(
		CodeInvalidArgument,
		fmt.Sprintf("invalid %s: %s", argument, reason),
		nil,
	).WithContext("argument", argument).(*errs.Error)
}

// ErrInvalidName creates an error for a malformed named-context name
func ErrInvalidName(name string) *errs.Error {
	return errs.NewError(
		CodeInvalidContextName,
		fmt.Sprintf("context name '%s' must match %s", name, contextNamePattern),
		nil,
	).WithContext("name", name).(*errs.Error)
}

// ErrConflicting creates an error for two contexts of the same kind and key
func ErrConflicting(service reflect.Type, kind ContextKind, key string) *errs.Error {
	msg := fmt.Sprintf("service '%s' has more than one %s context", typeName(service), kind)
	if key != "" {
		msg = fmt.Sprintf("service '%s' has more than one %s context '%s'", typeName(service), kind, key)
	}
	return errs.NewError(CodeConflictingContexts, msg, nil).
		WithContext("service", typeName(service)).
		WithContext("kind", kind.String()).(*errs.Error)
}

// errProfile creates an error for an invalid interceptor profile
func errProfile(reason string) *errs.Error {
	return errs.NewError(
		CodeInvalidProfile,
		"interceptor profile "+reason,
		nil,
	).WithContext("reason", reason).(*errs.Error)
}

// ErrDuplicate creates an error for a second root registration of a service
func ErrDuplicate(service reflect.Type) *errs.Error {
	return errs.NewError(
		CodeDuplicateRegistration,
		fmt.Sprintf("service '%s' already has a root registration", typeName(service)),
		nil,
	).WithContext("service", typeName(service)).(*errs.Error)
}

// ErrIncompatible creates an error for an implementation not assignable to its service
func ErrIncompatible(service, implementation reflect.Type) *errs.Error {
	return errs.NewError(
		CodeIncompatibleTypes,
		fmt.Sprintf("type '%s' is not assignable to service '%s'", typeName(implementation), typeName(service)),
		nil,
	).WithContext("service", typeName(service)).
		WithContext("implementation", typeName(implementation)).(*errs.Error)
}

// ErrInvalidMapping creates an integrity error for a container/manifest desync
func ErrInvalidMapping(service reflect.Type, detail string) *errs.Error {
	return errs.NewError(
		CodeInvalidManifestMapping,
		fmt.Sprintf("service '%s': %s", typeName(service), detail),
		nil,
	).WithContext("service", typeName(service)).(*errs.Error)
}

// ErrServiceNotFound creates an error for when a service is not found
func ErrServiceNotFound(service reflect.Type, name string) *errs.Error {
	key := typeKey{typ: service, name: name}
	return errs.NewError(
		CodeServiceNotFound,
		fmt.Sprintf("service '%s' not found", key),
		nil,
	).WithContext("service", key.String()).(*errs.Error)
}

// ErrCannotProxy creates an error for a service type the proxy generator cannot wrap
func ErrCannotProxy(service reflect.Type, reason string) *errs.Error {
	return errs.NewError(
		CodeCannotProxy,
		fmt.Sprintf("cannot proxy '%s': %s", typeName(service), reason),
		nil,
	).WithContext("service", typeName(service)).(*errs.Error)
}

// ErrCircularDependency creates an error for circular dependency detection
func ErrCircularDependency(cycle []string) *errs.Error {
	return errs.NewError(
		CodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %v", cycle),
		nil,
	).WithContext("cycle", cycle).(*errs.Error)
}

// ErrScopeNotFound creates an error for a scoped service resolved outside a matching scope
func ErrScopeNotFound(service reflect.Type, scope ResolutionScope) *errs.Error {
	return errs.NewError(
		CodeScopeNotFound,
		fmt.Sprintf("service '%s' with scope '%s' must be resolved from a matching scope", typeName(service), scope),
		nil,
	).WithContext("service", typeName(service)).
		WithContext("scope", scope.String()).(*errs.Error)
}

// NewServiceError creates an error for service operations
func NewServiceError(service, operation string, cause error) *errs.Error {
	return errs.NewError(
		CodeServiceError,
		fmt.Sprintf("service '%s' error during %s", service, operation),
		cause,
	).WithContext("service", service).
		WithContext("operation", operation).(*errs.Error)
}

// ErrTypeMismatch creates an error for type mismatch during resolution
func ErrTypeMismatch(service string, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("service '%s' type mismatch: got %T", service, actual),
		nil,
	).WithContext("service", service).
		WithContext("actual_type", fmt.Sprintf("%T", actual)).(*errs.Error)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsConfigurationError reports malformed registration inputs.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidContextName) ||
		errors.Is(err, ErrConflictingContexts) ||
		errors.Is(err, ErrInvalidProfile)
}

// IsPolicyViolation reports duplicate or incompatible registrations.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrDuplicateRegistration) || errors.Is(err, ErrIncompatibleTypes)
}

// IsIntegrityError reports a container/manifest desync. These are never recoverable.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrInvalidManifestMapping)
}

// IsLifecycleError reports use of a closed registrar, disposed resolver or ended scope.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrRegistrationClosed) ||
		errors.Is(err, ErrResolverDisposed) ||
		errors.Is(err, ErrScopeEnded)
}
