package gen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/smithygen/compiler/load"
)

// Sentinel errors for common failure cases.
var (
	// ErrUnmappedModule indicates a shape kind the placement strategy has no rule for.
	ErrUnmappedModule = errors.New("smithygen: shape has no module mapping")
	// ErrUnreachableOperation indicates a synthetic input/output whose operation is missing.
	ErrUnreachableOperation = errors.New("smithygen: owning operation not found")
	// ErrDuplicateProtocolOverride indicates a second override for the same protocol capability.
	ErrDuplicateProtocolOverride = errors.New("smithygen: duplicate protocol override")
	// ErrNonDeterministicResolution indicates that two resolutions of a shape disagreed.
	ErrNonDeterministicResolution = errors.New("smithygen: non-deterministic symbol resolution")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("smithygen: missing configuration")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("smithygen: code generation failed")
	// ErrDecoratorFailed indicates that a decorator contribution returned an error.
	ErrDecoratorFailed = errors.New("smithygen: decorator failed")
	// ErrDecoratorOrder indicates an unsatisfiable decorator ordering constraint.
	ErrDecoratorOrder = errors.New("smithygen: invalid decorator order")
	// ErrModuleCycle indicates that attaching a module would create a cycle.
	ErrModuleCycle = errors.New("smithygen: module cycle")
	// ErrModuleReparent indicates that a module already has a different parent.
	ErrModuleReparent = errors.New("smithygen: module already has a parent")
	// ErrNameConflict indicates two symbols with the same name in one scope.
	ErrNameConflict = errors.New("smithygen: name conflict")
	// ErrUnsupportedProtocol indicates a protocol capability with no strategy.
	ErrUnsupportedProtocol = errors.New("smithygen: unsupported protocol")
	// ErrDependencyConflict indicates two decorators requiring different versions of a dependency.
	ErrDependencyConflict = errors.New("smithygen: dependency conflict")
)

// UnmappedModuleError is returned when a placement strategy meets a shape
// kind it does not route.
type UnmappedModuleError struct {
	Shape  load.ShapeID
	Kind   load.Kind
	Flavor Flavor
}

// Error implements the error interface.
func (e *UnmappedModuleError) Error() string {
	return fmt.Sprintf("smithygen: no module mapping for %s shape %s (flavor %s)", e.Kind, e.Shape, e.Flavor)
}

// Is reports whether the target matches ErrUnmappedModule.
func (e *UnmappedModuleError) Is(target error) bool {
	return target == ErrUnmappedModule
}

// UnreachableOperationError is returned when a synthetic input or output
// structure points at an operation that is not in the graph.
type UnreachableOperationError struct {
	Shape     load.ShapeID
	Operation load.ShapeID
	Flavor    Flavor
}

// Error implements the error interface.
func (e *UnreachableOperationError) Error() string {
	var b strings.Builder
	b.WriteString("smithygen: synthetic shape ")
	b.WriteString(string(e.Shape))
	if e.Operation != "" {
		b.WriteString(" points at unknown operation ")
		b.WriteString(string(e.Operation))
	} else {
		b.WriteString(" does not name its operation")
	}
	fmt.Fprintf(&b, " (flavor %s)", e.Flavor)
	return b.String()
}

// Is reports whether the target matches ErrUnreachableOperation.
func (e *UnreachableOperationError) Is(target error) bool {
	return target == ErrUnreachableOperation
}

// DuplicateProtocolOverrideError is returned by ProtocolRegistry.Register when
// an override for the same protocol and capability already exists. Service
// and Flavor are set when the registry is bound to a run.
type DuplicateProtocolOverrideError struct {
	Service    load.ShapeID
	Flavor     Flavor
	Protocol   ProtocolID
	Capability Capability
	Existing   string
	Duplicate  string
}

// Error implements the error interface.
func (e *DuplicateProtocolOverrideError) Error() string {
	var scope string
	if e.Service != "" {
		scope = fmt.Sprintf(" of service %s (flavor %s)", e.Service, e.Flavor)
	}
	return fmt.Sprintf("smithygen: duplicate %s override for protocol %s%s: %q already registered, got %q",
		e.Capability, e.Protocol, scope, e.Existing, e.Duplicate)
}

// Is reports whether the target matches ErrDuplicateProtocolOverride.
func (e *DuplicateProtocolOverrideError) Is(target error) bool {
	return target == ErrDuplicateProtocolOverride
}

// NonDeterministicResolutionError is returned when resolving the same shape
// twice within a run produced different symbols.
type NonDeterministicResolutionError struct {
	Shape  load.ShapeID
	Flavor Flavor
	First  string
	Second string
}

// Error implements the error interface.
func (e *NonDeterministicResolutionError) Error() string {
	return fmt.Sprintf("smithygen: shape %s resolved to %s and then %s (flavor %s)", e.Shape, e.First, e.Second, e.Flavor)
}

// Is reports whether the target matches ErrNonDeterministicResolution.
func (e *NonDeterministicResolutionError) Is(target error) bool {
	return target == ErrNonDeterministicResolution
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("smithygen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("smithygen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents a code generation error.
type GenerationError struct {
	Phase   string // "resolve", "placement", "emit", etc.
	Shape   load.ShapeID
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("smithygen: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.Shape != "" {
		b.WriteString(" (shape: ")
		b.WriteString(string(e.Shape))
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase string, shape load.ShapeID, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		Shape:   shape,
		Message: message,
		Cause:   cause,
	}
}

// DecoratorError wraps an error returned by a decorator contribution.
type DecoratorError struct {
	Decorator string
	Point     ExtensionPoint
	Shape     load.ShapeID
	Cause     error
}

// Error implements the error interface.
func (e *DecoratorError) Error() string {
	var b strings.Builder
	b.WriteString("smithygen: decorator ")
	b.WriteString(e.Decorator)
	b.WriteString(" failed at ")
	b.WriteString(string(e.Point))
	if e.Shape != "" {
		b.WriteString(" for ")
		b.WriteString(string(e.Shape))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *DecoratorError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrDecoratorFailed.
func (e *DecoratorError) Is(target error) bool {
	return target == ErrDecoratorFailed
}

// DecoratorOrderError is returned when a decorator's predecessor constraint
// cannot be satisfied by the (priority, registration) order.
type DecoratorOrderError struct {
	Decorator   string
	Predecessor string
	Message     string
}

// Error implements the error interface.
func (e *DecoratorOrderError) Error() string {
	return fmt.Sprintf("smithygen: decorator %s must run after %s: %s", e.Decorator, e.Predecessor, e.Message)
}

// Is reports whether the target matches ErrDecoratorOrder.
func (e *DecoratorOrderError) Is(target error) bool {
	return target == ErrDecoratorOrder
}

// NameConflictError is returned when two shapes resolve to the same name in
// the same scope.
type NameConflictError struct {
	Scope  string
	Name   string
	Shapes []load.ShapeID
}

// Error implements the error interface.
func (e *NameConflictError) Error() string {
	ids := make([]string, len(e.Shapes))
	for i, id := range e.Shapes {
		ids[i] = string(id)
	}
	return fmt.Sprintf("smithygen: name %s is declared more than once in %s by %s", e.Name, e.Scope, strings.Join(ids, ", "))
}

// Is reports whether the target matches ErrNameConflict.
func (e *NameConflictError) Is(target error) bool {
	return target == ErrNameConflict
}

// UnsupportedProtocolError is returned when neither an override nor a default
// strategy exists for a protocol capability.
type UnsupportedProtocolError struct {
	Protocol   ProtocolID
	Capability Capability
	Message    string
}

// Error implements the error interface.
func (e *UnsupportedProtocolError) Error() string {
	msg := fmt.Sprintf("smithygen: no %s strategy for protocol %s", e.Capability, e.Protocol)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether the target matches ErrUnsupportedProtocol.
func (e *UnsupportedProtocolError) Is(target error) bool {
	return target == ErrUnsupportedProtocol
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsUnmappedModule reports whether the error is an UnmappedModuleError.
func IsUnmappedModule(err error) bool {
	var e *UnmappedModuleError
	return errors.As(err, &e)
}

// IsUnreachableOperation reports whether the error is an UnreachableOperationError.
func IsUnreachableOperation(err error) bool {
	var e *UnreachableOperationError
	return errors.As(err, &e)
}

// IsDuplicateProtocolOverride reports whether the error is a DuplicateProtocolOverrideError.
func IsDuplicateProtocolOverride(err error) bool {
	var e *DuplicateProtocolOverrideError
	return errors.As(err, &e)
}

// IsNonDeterministicResolution reports whether the error is a NonDeterministicResolutionError.
func IsNonDeterministicResolution(err error) bool {
	var e *NonDeterministicResolutionError
	return errors.As(err, &e)
}

// IsDecoratorError reports whether the error is a DecoratorError.
func IsDecoratorError(err error) bool {
	var e *DecoratorError
	return errors.As(err, &e)
}
