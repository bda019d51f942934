// Package ark ties the toolchain together: parsing source or MAST
// JSON into content-addressed programs, enforcing the linear type
// discipline, and lowering programs to either fuel-metered bytecode
// or WASM modules with WIT interface descriptions.
//
// The subpackages can be used directly; this package provides the
// common pipelines the CLI is built on.
package ark
