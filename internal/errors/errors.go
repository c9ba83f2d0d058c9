package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Sentinel conditions raised by the harness. StructuredError values unwrap to
// one of these so callers can branch with errors.Is.
var (
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrDegenerateShard = errors.New("degenerate shard")
	ErrDatasetLoad     = errors.New("dataset load failure")
	ErrIndexBuild      = errors.New("index build failure")
	ErrSearch          = errors.New("search failure")
	ErrSerialization   = errors.New("serialization failure")
	ErrPersistence     = errors.New("persistence failure")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error types for different categories of failures
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeMetric        ErrorType = "metric"
	ErrorTypeSharding      ErrorType = "sharding"
	ErrorTypeDataset       ErrorType = "dataset"
	ErrorTypeIndex         ErrorType = "index"
	ErrorTypeSearch        ErrorType = "search"
	ErrorTypeSerialization ErrorType = "serialization"
	ErrorTypePersistence   ErrorType = "persistence"
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Message   string
	Kind      error
	Cause     error
	Context   map[string]interface{}
	Stack     []uintptr
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the sentinel kind and the underlying cause.
func (e *StructuredError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// New creates a new structured error
func New(errType ErrorType, operation, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Kind:      kindOf(errType),
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}

	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Kind:      kindOf(errType),
		Cause:     err,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func kindOf(t ErrorType) error {
	switch t {
	case ErrorTypeValidation, ErrorTypeConfiguration:
		return ErrInvalidArgument
	case ErrorTypeMetric:
		return ErrUnknownMetric
	case ErrorTypeSharding:
		return ErrDegenerateShard
	case ErrorTypeDataset:
		return ErrDatasetLoad
	case ErrorTypeIndex:
		return ErrIndexBuild
	case ErrorTypeSearch:
		return ErrSearch
	case ErrorTypeSerialization:
		return ErrSerialization
	case ErrorTypePersistence:
		return ErrPersistence
	default:
		return nil
	}
}

// captureStack captures the current stack trace
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, this function and the constructor
	return pcs[:n]
}

// IsFatal reports whether err must abort the whole run. An unpersisted
// measurement is lost work, so serialization and persistence failures are
// never downgraded to a skip.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSerialization) || errors.Is(err, ErrPersistence)
}

// IsSkip reports whether err only means the current dataset is not
// benchmarked.
func IsSkip(err error) bool {
	return errors.Is(err, ErrUnknownMetric)
}

// Common error constructors for frequent use cases

// NewValidationError creates a validation error
func NewValidationError(operation, message string) *StructuredError {
	return New(ErrorTypeValidation, operation, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(operation, message string) *StructuredError {
	return New(ErrorTypeConfiguration, operation, message)
}

// NewUnknownMetricError reports a metric name the registry does not know.
func NewUnknownMetricError(name string) *StructuredError {
	return New(ErrorTypeMetric, "resolve_metric", fmt.Sprintf("no distance function named %q", name)).
		WithContext("metric", name)
}

// NewDegenerateShardError reports a shard plan that would produce empty shards.
func NewDegenerateShardError(cardinality, shards int) *StructuredError {
	return New(ErrorTypeSharding, "plan_shards",
		fmt.Sprintf("cannot split %d vectors into %d shards", cardinality, shards)).
		WithContext("cardinality", cardinality).
		WithContext("shards", shards)
}

// WrapDatasetError wraps an error as a dataset load failure
func WrapDatasetError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeDataset, operation, message)
}

// NewDatasetError creates a dataset load failure without an underlying cause
func NewDatasetError(operation, message string) *StructuredError {
	return New(ErrorTypeDataset, operation, message)
}

// WrapIndexError wraps an error as an index build failure
func WrapIndexError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeIndex, operation, message)
}

// NewIndexError creates an index build failure
func NewIndexError(operation, message string) *StructuredError {
	return New(ErrorTypeIndex, operation, message)
}

// WrapSearchError wraps an error as a search failure
func WrapSearchError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeSearch, operation, message)
}

// NewSearchError creates a search failure
func NewSearchError(operation, message string) *StructuredError {
	return New(ErrorTypeSearch, operation, message)
}

// WrapSerializationError wraps an error as a serialization failure
func WrapSerializationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeSerialization, operation, message)
}

// WrapPersistenceError wraps an error as a persistence failure
func WrapPersistenceError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypePersistence, operation, message)
}
