package core

import "testing"

func newTestSystem() (*System, *Kernel) {
	k, _ := newTestKernel()
	k.PushRootFrame(Actor{Blueprint: "Root", Function: "run"}, nil)
	return NewSystem(k), k
}

func TestSystemNewObjectValidatesSchema(t *testing.T) {
	s, _ := newTestSystem()
	var pkg NodeId
	pkg[0] = byte(EntityGlobalPackage)
	s.RegisterBlueprint(pkg, "Counter",
		&BlueprintSchema{Blueprint: "Counter", Fields: []FieldSchema{{Name: "count", Kind: VU32}}},
		EntityInternalGenericComponent, EntityGlobalGenericComponent)

	if _, err := s.NewObject(pkg, "Counter", []Value{U64Value(1)}); err == nil {
		t.Fatal("expected schema validation error for wrong field kind")
	}
	id, err := s.NewObject(pkg, "Counter", []Value{U32Value(7)})
	if err != nil {
		t.Fatalf("new object: %v", err)
	}
	if id.EntityType() != EntityInternalGenericComponent {
		t.Fatalf("unexpected entity type %v", id.EntityType())
	}
}

func TestSystemGlobalizeCombinesFourModules(t *testing.T) {
	s, k := newTestSystem()
	var pkg NodeId
	pkg[0] = byte(EntityGlobalPackage)
	s.RegisterBlueprint(pkg, "Widget", &BlueprintSchema{Blueprint: "Widget"}, EntityInternalGenericComponent, EntityGlobalGenericComponent)

	self, err := s.NewObject(pkg, "Widget", nil)
	if err != nil {
		t.Fatalf("new object: %v", err)
	}
	metadata := k.AllocateNodeId(EntityInternalGenericComponent)
	k.CreateNode(metadata, map[ModuleId]map[string]SubstateValue{
		ModuleObject: {string(TupleKey(0).encode()): {Data: []byte("meta")}},
	})
	royalty := k.AllocateNodeId(EntityInternalGenericComponent)
	k.CreateNode(royalty, nil)
	accessRules := k.AllocateNodeId(EntityInternalGenericComponent)
	k.CreateNode(accessRules, nil)

	global, err := s.Globalize(GlobalizeModules{Self: self, Metadata: metadata, Royalty: royalty, AccessRules: accessRules})
	if err != nil {
		t.Fatalf("globalize: %v", err)
	}
	if !global.IsGlobal() {
		t.Fatalf("expected a global entity type, got %v", global.EntityType())
	}
}

func TestSystemIndexRoundTrip(t *testing.T) {
	s, _ := newTestSystem()
	idx := s.NewIndex()
	if err := s.InsertIndexEntry(idx, []byte("k1"), SubstateValue{Data: []byte("v1")}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	vals, err := s.ScanIndex(idx, 0)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(vals) != 1 || string(vals[0].Data) != "v1" {
		t.Fatalf("unexpected scan result %+v", vals)
	}
	v, found, err := s.RemoveIndexEntry(idx, []byte("k1"))
	if err != nil || !found {
		t.Fatalf("remove: %v found=%v", err, found)
	}
	if string(v.Data) != "v1" {
		t.Fatalf("unexpected removed value %q", v.Data)
	}
}

func TestSystemEmitEventValidatesSchema(t *testing.T) {
	s, k := newTestSystem()
	var pkg NodeId
	pkg[0] = byte(EntityGlobalPackage)
	s.RegisterBlueprint(pkg, "Widget",
		&BlueprintSchema{Blueprint: "Widget", Events: map[string][]FieldSchema{
			"Pinged": {{Name: "n", Kind: VU32}},
		}}, EntityInternalGenericComponent, EntityGlobalGenericComponent)

	k.Register(pkg, "Widget", "call", func(k *Kernel, actor Actor, args Value) (Value, error) {
		return Value{}, s.EmitEvent("Pinged", []Value{U32Value(3)})
	})
	if _, err := k.Invoke(Actor{Package: pkg, Blueprint: "Widget", Function: "call"}, Value{}); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(s.Events()) != 1 {
		t.Fatalf("expected 1 event, got %d", len(s.Events()))
	}
}
