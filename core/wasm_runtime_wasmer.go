package core

import (
	"github.com/wasmerio/wasmer-go/wasmer"
)

// WasmerRuntime adapts wasmer-go to WasmRuntime. It owns only the
// compile/instantiate/invoke wiring; validation and interpretation happen
// entirely inside wasmer, mirroring how HeavyVM in the reference engine
// hands code straight to a *wasmer.Engine instead of reimplementing a
// WASM interpreter.
type WasmerRuntime struct {
	engine *wasmer.Engine
}

func NewWasmerRuntime() *WasmerRuntime {
	return &WasmerRuntime{engine: wasmer.NewEngine()}
}

func (r *WasmerRuntime) Compile(code []byte) (WasmModule, error) {
	store := wasmer.NewStore(r.engine)
	mod, err := wasmer.NewModule(store, code)
	if err != nil {
		return nil, applicationErr(KindPackageError, "wasm compile: %v", err)
	}
	return &wasmerModule{store: store, module: mod}, nil
}

type wasmerModule struct {
	store  *wasmer.Store
	module *wasmer.Module
}

func (m *wasmerModule) Instantiate(gas GasCallback) (WasmInstance, error) {
	imports := registerGasImport(m.store, gas)
	instance, err := wasmer.NewInstance(m.module, imports)
	if err != nil {
		return nil, applicationErr(KindPackageError, "wasm instantiate: %v", err)
	}
	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, applicationErr(KindPackageError, "wasm memory export missing: %v", err)
	}
	return &wasmerInstance{instance: instance, mem: mem}, nil
}

// registerGasImport wires a single host import, host_consume_gas(units:
// i64) -> i32, the one host call every WASM blueprint's metering prologue
// invokes before running a unit of work.
func registerGasImport(store *wasmer.Store, gas GasCallback) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()
	fn := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I64), wasmer.NewValueTypes(wasmer.I32)),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := gas(uint64(args[0].I64())); err != nil {
				return nil, err
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		},
	)
	imports.Register("env", map[string]wasmer.IntoExtern{"host_consume_gas": fn})
	return imports
}

type wasmerInstance struct {
	instance *wasmer.Instance
	mem      *wasmer.Memory
}

// Invoke writes args into linear memory, calls name(ptr, len) -> (ptr,
// len), and reads the result back out. The calling convention (two i32
// words in, two i32 words out) is fixed by this adapter; a real package
// loader would negotiate it with the compiled blueprint's ABI version.
func (i *wasmerInstance) Invoke(name string, args []byte) ([]byte, error) {
	fn, err := i.instance.Exports.GetFunction(name)
	if err != nil {
		return nil, applicationErr(KindPackageError, "export %q not found: %v", name, err)
	}
	mem := i.mem.Data()
	if len(args) > len(mem) {
		return nil, applicationErr(KindPackageError, "argument buffer exceeds wasm memory")
	}
	copy(mem, args)

	ret, err := fn(int32(0), int32(len(args)))
	if err != nil {
		return nil, applicationErr(KindPackageError, "wasm invoke %q: %v", name, err)
	}
	pair, ok := ret.([]interface{})
	if !ok || len(pair) != 2 {
		return nil, applicationErr(KindPackageError, "export %q must return (ptr, len)", name)
	}
	ptr, ok1 := pair[0].(int32)
	length, ok2 := pair[1].(int32)
	if !ok1 || !ok2 {
		return nil, applicationErr(KindPackageError, "export %q returned non-i32 (ptr, len)", name)
	}
	mem = i.mem.Data()
	if int(ptr)+int(length) > len(mem) || ptr < 0 || length < 0 {
		return nil, applicationErr(KindPackageError, "export %q returned out-of-bounds (ptr, len)", name)
	}
	out := make([]byte, length)
	copy(out, mem[ptr:ptr+length])
	return out, nil
}
