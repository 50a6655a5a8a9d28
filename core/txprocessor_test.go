package core

import "testing"

func newTestProcessor() (*TransactionProcessor, *ResourceModule, *AccountModule, *Kernel) {
	res, k := newTestResourceModule()
	sys := NewSystem(k)
	acc := NewAccountModule(k, sys, res)
	auth := NewAuthModule()
	registerNativeBlueprints(k, res, acc)
	return NewTransactionProcessor(k, sys, res, acc, auth, map[[32]byte][]byte{}), res, acc, k
}

func TestTransactionProcessorTakeAndDepositLeavesWorktopEmpty(t *testing.T) {
	p, res, acc, _ := newTestProcessor()

	resource, err := res.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	bucket, err := res.MintFungible(resource, NewDecimalFromInt64(30))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := p.worktop.Put(bucket); err != nil {
		t.Fatalf("put: %v", err)
	}

	var owner NodeId
	owner[0] = byte(EntityGlobalFungibleResource)
	owner[1] = 1
	account, err := acc.CreateAccount(owner)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	_, err = p.Run([]Instruction{
		{Kind: InsTakeFromWorktopAmount, Resource: resource, Amount: NewDecimalFromInt64(30), Name: "b"},
		{
			Kind:      InsCallMethod,
			Package:   AccountPackage,
			Blueprint: BlueprintAccount,
			Method:    "deposit",
			Address:   account,
			Args:      []Value{{Kind: VManifestBucket, ManifestName: "b"}},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	vault, err := acc.vaultFor(account, resource, false)
	if err != nil {
		t.Fatalf("vault for: %v", err)
	}
	balance, err := res.amountOf(vault)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if !balance.Equal(NewDecimalFromInt64(30)) {
		t.Fatalf("unexpected deposited balance %s", balance.String())
	}
}

func TestTransactionProcessorRejectsNonEmptyWorktopAtEnd(t *testing.T) {
	p, res, _, _ := newTestProcessor()
	resource, err := res.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	bucket, err := res.MintFungible(resource, NewDecimalFromInt64(5))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := p.worktop.Put(bucket); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := p.Run(nil); err == nil {
		t.Fatal("expected non-empty worktop at transaction end to fail")
	}
}

func TestTransactionProcessorRejectsDanglingNamedBucket(t *testing.T) {
	p, res, _, _ := newTestProcessor()
	resource, err := res.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	bucket, err := res.MintFungible(resource, NewDecimalFromInt64(5))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := p.worktop.Put(bucket); err != nil {
		t.Fatalf("put: %v", err)
	}

	_, err = p.Run([]Instruction{
		{Kind: InsTakeFromWorktopAmount, Resource: resource, Amount: NewDecimalFromInt64(5), Name: "b"},
	})
	if err == nil {
		t.Fatal("expected dangling named bucket at transaction end to fail")
	}
}

func TestTransactionProcessorSubstituteValueRejectsUnresolvedBucket(t *testing.T) {
	p, _, _, _ := newTestProcessor()
	_, err := p.substituteValue(Value{Kind: VManifestBucket, ManifestName: "nope"})
	if err == nil {
		t.Fatal("expected unresolved manifest bucket to error")
	}
}

func TestTransactionProcessorEntireWorktopExpressionDrainsAllResources(t *testing.T) {
	p, res, _, _ := newTestProcessor()
	resource, err := res.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	bucket, err := res.MintFungible(resource, NewDecimalFromInt64(7))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := p.worktop.Put(bucket); err != nil {
		t.Fatalf("put: %v", err)
	}

	v, err := p.substituteValue(Value{Kind: VManifestExpression, ExprKind: ExprEntireWorktop})
	if err != nil {
		t.Fatalf("substitute: %v", err)
	}
	if v.Kind != VArray || len(v.Array) != 1 || v.Array[0].Kind != VOwn {
		t.Fatalf("unexpected entire-worktop expansion: %+v", v)
	}

	empty, err := p.worktop.IsEmpty()
	if err != nil {
		t.Fatalf("is empty: %v", err)
	}
	if !empty {
		t.Fatal("expected worktop to be drained")
	}
	// Drop the drained bucket directly to avoid leaking it in the root frame.
	if _, err := p.kernel.DropNode(v.Array[0].Own.NodeId); err != nil {
		t.Fatalf("drop: %v", err)
	}
}
