package core

import "testing"

func newTestKernel() (*Kernel, *idAllocator) {
	track := NewTrack(newFakeDB())
	ids := newIDAllocator([32]byte{1, 2, 3})
	k := NewKernel(DefaultKernelConfig(), track, ids, NewAuthModule(), nil)
	return k, ids
}

func TestKernelCreateAndDropNode(t *testing.T) {
	k, _ := newTestKernel()
	k.PushRootFrame(Actor{Blueprint: "Root", Function: "run"}, nil)

	id := k.AllocateNodeId(EntityInternalGenericComponent)
	k.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleObject: {string(TupleKey(0).encode()): {Data: []byte("hello")}},
	})

	modules, err := k.DropNode(id)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if string(modules[ModuleObject][string(TupleKey(0).encode())].Data) != "hello" {
		t.Fatal("unexpected dropped node contents")
	}
	if _, err := k.DropNode(id); err == nil {
		t.Fatal("expected error dropping an already-dropped node")
	}
}

func TestKernelInvokeDispatchesAndScopesHeap(t *testing.T) {
	k, _ := newTestKernel()
	k.PushRootFrame(Actor{Blueprint: "Root", Function: "run"}, nil)

	var pkg NodeId
	pkg[0] = byte(EntityGlobalPackage)
	k.Register(pkg, "Echo", "call", func(k *Kernel, actor Actor, args Value) (Value, error) {
		return Value{Kind: VTuple, Tuple: []Value{args}}, nil
	})

	ret, err := k.Invoke(Actor{Package: pkg, Blueprint: "Echo", Function: "call"}, U32Value(42))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if ret.Tuple[0].U32 != 42 {
		t.Fatalf("unexpected echoed value %+v", ret)
	}
}

func TestKernelInvokeRejectsUnregisteredDispatch(t *testing.T) {
	k, _ := newTestKernel()
	k.PushRootFrame(Actor{Blueprint: "Root", Function: "run"}, nil)

	var pkg NodeId
	pkg[0] = byte(EntityGlobalPackage)
	if _, err := k.Invoke(Actor{Package: pkg, Blueprint: "Missing", Function: "call"}, Value{}); err == nil {
		t.Fatal("expected dispatch error")
	}
}

func TestKernelInvokeRejectsInvisibleReference(t *testing.T) {
	k, _ := newTestKernel()
	k.PushRootFrame(Actor{Blueprint: "Root", Function: "run"}, nil)

	var pkg, notVisible NodeId
	pkg[0] = byte(EntityGlobalPackage)
	notVisible[0] = byte(EntityGlobalGenericComponent)
	notVisible[1] = 9

	k.Register(pkg, "Echo", "call", func(k *Kernel, actor Actor, args Value) (Value, error) {
		return Value{}, nil
	})

	if _, err := k.Invoke(Actor{Package: pkg, Blueprint: "Echo", Function: "call"}, AddressValue(notVisible)); err == nil {
		t.Fatal("expected InvalidReference error")
	}
}

func TestKernelInvokeMovesOwnedNodeIntoCallee(t *testing.T) {
	k, _ := newTestKernel()
	k.PushRootFrame(Actor{Blueprint: "Root", Function: "run"}, nil)

	owned := k.AllocateNodeId(EntityInternalGenericComponent)
	k.CreateNode(owned, nil)

	var pkg NodeId
	pkg[0] = byte(EntityGlobalPackage)
	var sawOwned bool
	k.Register(pkg, "Sink", "call", func(k *Kernel, actor Actor, args Value) (Value, error) {
		sawOwned = k.currentFrame().ownedHeap[owned] != nil
		if _, err := k.DropNode(owned); err != nil {
			return Value{}, err
		}
		return Value{}, nil
	})

	if _, err := k.Invoke(Actor{Package: pkg, Blueprint: "Sink", Function: "call"}, OwnValue(owned)); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !sawOwned {
		t.Fatal("expected callee frame to own the moved node")
	}
	if k.currentFrame().canSee(owned) {
		t.Fatal("expected caller frame to lose visibility of a moved-and-dropped node")
	}
}

func TestKernelMaxCallDepthExceeded(t *testing.T) {
	cfg := KernelConfig{MaxCallDepth: 1}
	track := NewTrack(newFakeDB())
	k := NewKernel(cfg, track, newIDAllocator([32]byte{1}), NewAuthModule(), nil)
	k.PushRootFrame(Actor{Blueprint: "Root", Function: "run"}, nil)

	var pkg NodeId
	pkg[0] = byte(EntityGlobalPackage)
	k.Register(pkg, "Echo", "call", func(k *Kernel, actor Actor, args Value) (Value, error) {
		return Value{}, nil
	})
	if _, err := k.Invoke(Actor{Package: pkg, Blueprint: "Echo", Function: "call"}, Value{}); err == nil {
		t.Fatal("expected MaxCallDepthExceeded")
	}
}
