package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// As and Is re-export the standard helpers so callers only need this
// package.
func As(err error, target any) bool { return stderrors.As(err, target) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

// Phase indicates where in the pipeline the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // source → AST
	PhaseLoad    Phase = "load"    // content-addressed program loading
	PhaseCheck   Phase = "check"   // linear type checking
	PhaseCompile Phase = "compile" // AST → bytecode
	PhaseRun     Phase = "run"     // bytecode VM execution
	PhaseCodegen Phase = "codegen" // AST → WASM binary
	PhaseHost    Phase = "host"    // host-import bridge
	PhaseInterop Phase = "interop" // external WASM module registry
	PhaseWit     Phase = "wit"     // interface generation
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax         Kind = "syntax"
	KindHashMismatch   Kind = "hash_mismatch"
	KindDoubleUse      Kind = "double_use"
	KindLeak           Kind = "leak"
	KindTypeMismatch   Kind = "type_mismatch"
	KindStackUnderflow Kind = "stack_underflow"
	KindUnresolved     Kind = "unresolved"
	KindFuelExhausted  Kind = "fuel_exhausted"
	KindHalted         Kind = "halted"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidData    Kind = "invalid_data"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindOverflow       Kind = "overflow"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindUnsupported    Kind = "unsupported"
	KindExecution      Kind = "execution"
)

// Error is the structured error type used throughout the Ark core
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	Line   int
	Column int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d, col %d)", e.Line, e.Column)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the binding or field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// At sets the source position
func (b *Builder) At(line, column int) *Builder {
	b.err.Line = line
	b.err.Column = column
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Syntax creates a parse error with source position
func Syntax(line, column int, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Line:   line,
		Column: column,
		Detail: detail,
	}
}

// DoubleUse creates a linear double-use violation
func DoubleUse(name string, line, column int) *Error {
	return &Error{
		Phase:  PhaseCheck,
		Kind:   KindDoubleUse,
		Path:   []string{name},
		Line:   line,
		Column: column,
		Detail: fmt.Sprintf("linear binding %q used more than once", name),
	}
}

// Leak creates a linear leak violation
func Leak(name string, line, column int) *Error {
	return &Error{
		Phase:  PhaseCheck,
		Kind:   KindLeak,
		Path:   []string{name},
		Line:   line,
		Column: column,
		Detail: fmt.Sprintf("linear binding %q declared but never consumed", name),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// StackUnderflow creates a VM stack underflow fault
func StackUnderflow(op string) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindStackUnderflow,
		Detail: fmt.Sprintf("stack underflow in %s", op),
	}
}

// Unresolved creates an unresolved reference fault
func Unresolved(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolved,
		Detail: fmt.Sprintf("unresolved %s %q", what, name),
	}
}

// FuelExhausted creates a fuel exhaustion fault
func FuelExhausted(budget uint64) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindFuelExhausted,
		Detail: fmt.Sprintf("fuel budget of %d steps exhausted", budget),
	}
}

// HashMismatch creates a content-hash binding failure
func HashMismatch(want, got string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindHashMismatch,
		Detail: fmt.Sprintf("content hash %s does not match recomputed %s", want, got),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Execution wraps a guest execution failure
func Execution(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseInterop,
		Kind:   KindExecution,
		Detail: fmt.Sprintf("execution of %q failed", name),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
