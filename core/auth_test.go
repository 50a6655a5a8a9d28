package core

import "testing"

func TestAccessRuleEvaluate(t *testing.T) {
	var xrd, badge NodeId
	xrd[0], badge[0] = byte(EntityGlobalFungibleResource), byte(EntityGlobalFungibleResource)
	badge[1] = 1

	rule := AnyOf(Require(xrd), AllOf(Require(badge), AtLeastN(1, Require(xrd), Require(badge))))

	if rule.Evaluate(ProofSet{}) {
		t.Fatal("expected denial with no proofs")
	}
	if !rule.Evaluate(ProofSet{xrd: true}) {
		t.Fatal("expected AnyOf(Require(xrd), ...) to pass with xrd proof")
	}
}

func TestRoleListRejectsDeferralCycle(t *testing.T) {
	_, err := NewRoleList(map[string]RoleAssignment{
		"a": {Defers: "b"},
		"b": {Defers: "a"},
	})
	if err == nil {
		t.Fatal("expected cycle rejection")
	}
}

func TestMethodAuthChecksResolvedRole(t *testing.T) {
	var badge NodeId
	badge[0] = byte(EntityGlobalFungibleResource)

	roles, err := NewRoleList(map[string]RoleAssignment{
		"withdrawer": {Rule: Require(badge), HasRule: true},
		"withdraw_method_role": {Defers: "withdrawer"},
	})
	if err != nil {
		t.Fatalf("role list: %v", err)
	}
	auth := &MethodAuth{Roles: roles, Method: map[string]string{"withdraw": "withdraw_method_role"}}

	if err := auth.CheckMethod("withdraw", ProofSet{}); err == nil {
		t.Fatal("expected denial without badge proof")
	}
	if err := auth.CheckMethod("withdraw", ProofSet{badge: true}); err != nil {
		t.Fatalf("expected pass with badge proof: %v", err)
	}
	if err := auth.CheckMethod("unbound_method", ProofSet{}); err != nil {
		t.Fatalf("expected unbound method to default-allow: %v", err)
	}
}

func TestAuthModuleBarrierScopesProofVisibility(t *testing.T) {
	var badge NodeId
	badge[0] = byte(EntityGlobalFungibleResource)

	a := NewAuthModule()
	a.PushProof(badge)
	if !a.visibleProofs()[badge] {
		t.Fatal("expected proof visible in same frame")
	}

	a.PushBarrier()
	if a.visibleProofs()[badge] {
		t.Fatal("expected proof from below a barrier to be invisible")
	}
	if err := a.PopBarrier(); err != nil {
		t.Fatalf("pop barrier: %v", err)
	}
	if !a.visibleProofs()[badge] {
		t.Fatal("expected proof visible again after popping the barrier")
	}
	if err := a.PopBarrier(); err == nil {
		t.Fatal("expected error popping the root barrier")
	}
}

func TestAuthModulePopProofReturnsSignatureProofWithoutNode(t *testing.T) {
	var resource NodeId
	resource[0] = byte(EntityGlobalFungibleResource)

	a := NewAuthModule()
	a.PushProof(resource)

	popped, ok := a.PopProof()
	if !ok {
		t.Fatal("expected a proof to pop")
	}
	if popped.hasNode {
		t.Fatal("a signature-derived proof should have no backing node before materialization")
	}
	if popped.resource != resource {
		t.Fatalf("unexpected popped resource %s", popped.resource)
	}
	if _, ok := a.PopProof(); ok {
		t.Fatal("expected the auth zone to be empty after popping its only proof")
	}
}

func TestAuthModulePushProofNodeRoundTripsThroughPop(t *testing.T) {
	var resource, node NodeId
	resource[0] = byte(EntityGlobalFungibleResource)
	node[0] = byte(EntityInternalGenericComponent)
	node[1] = 7

	a := NewAuthModule()
	a.PushProofNode(node, resource)

	popped, ok := a.PopProof()
	if !ok || !popped.hasNode || popped.id != node {
		t.Fatalf("expected to pop back the pushed proof node, got %+v ok=%v", popped, ok)
	}
}

func TestAuthModuleDropRegularProofsLeavesSignatureProofsIntact(t *testing.T) {
	var resource, node NodeId
	resource[0] = byte(EntityGlobalFungibleResource)
	node[0] = byte(EntityInternalGenericComponent)

	a := NewAuthModule()
	a.PushProof(resource)
	a.PushProofNode(node, resource)

	dropped := a.DropRegularProofs()
	if len(dropped) != 1 || dropped[0] != node {
		t.Fatalf("expected exactly the regular proof's node dropped, got %v", dropped)
	}
	if !a.visibleProofs()[resource] {
		t.Fatal("expected the signature-derived proof to remain visible")
	}
}

func TestAuthModuleDrainZoneReturnsAllEntriesAndEmptiesTheZone(t *testing.T) {
	var resource, node NodeId
	resource[0] = byte(EntityGlobalFungibleResource)
	node[0] = byte(EntityInternalGenericComponent)

	a := NewAuthModule()
	a.PushProof(resource)
	a.PushProofNode(node, resource)

	drained := a.DrainZone()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained proofs, got %d", len(drained))
	}
	if _, ok := a.PopProof(); ok {
		t.Fatal("expected the zone to be empty after draining")
	}
}
