package core

// GasCallback is invoked by a running WASM instance before executing each
// metered unit of work; returning an error aborts the instance immediately.
type GasCallback func(units uint64) error

// WasmInstance is a compiled, instantiated WASM module ready to have its
// exported functions invoked. The host (vm_sandbox_management.go's
// counterpart in the reference engine) owns memory layout and calling
// convention; the core only needs compile/instantiate/invoke.
type WasmInstance interface {
	// Invoke calls the exported function name with the self-describing
	// encoded args and returns the self-describing encoded return value.
	Invoke(name string, args []byte) ([]byte, error)
}

// WasmRuntime is the WASM validator/interpreter collaborator the core
// consumes at the package-blueprint dispatch boundary. The validator
// and interpreter internals are explicitly out of scope; this interface
// is the entire surface the core depends on.
type WasmRuntime interface {
	// Compile validates and prepares code for instantiation, failing on
	// malformed or disallowed WASM the same way the reference engine's
	// validator rejects non-deterministic instructions ahead of time.
	Compile(code []byte) (WasmModule, error)
}

// WasmModule is runtime-compiled code, instantiated once per invocation so
// each call gets fresh linear memory and a fresh gas budget.
type WasmModule interface {
	Instantiate(gas GasCallback) (WasmInstance, error)
}
