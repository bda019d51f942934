// Package errors provides structured error types for the Ark language core.
//
// Errors are categorized by Phase (where in the pipeline the error occurred)
// and Kind (error category). The Error type includes context: binding path,
// source position, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCheck, errors.KindDoubleUse).
//		Path("buf").
//		At(3, 12).
//		Detail("linear binding consumed twice").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DoubleUse("buf", 3, 12)
//	err := errors.FuelExhausted(10000)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
