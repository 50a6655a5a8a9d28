package core

import "testing"

func newTestResourceModule() (*ResourceModule, *Kernel) {
	s, k := newTestSystem()
	return NewResourceModule(k, s), k
}

func TestResourceManagerMintIncreasesTotalSupplyAndBucketAmount(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}

	bucket, err := r.MintFungible(resource, NewDecimalFromInt64(100))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	amount, err := r.amountOf(bucket)
	if err != nil {
		t.Fatalf("amount of bucket: %v", err)
	}
	if !amount.Equal(NewDecimalFromInt64(100)) {
		t.Fatalf("unexpected bucket amount %s", amount.String())
	}

	h, err := r.kernel.LockSubstate(resource, ModuleObject, TupleKey(fieldTotalSupply), LockRead, nil)
	if err != nil {
		t.Fatalf("lock total supply: %v", err)
	}
	sv, err := r.kernel.ReadSubstate(h)
	if err != nil {
		t.Fatalf("read total supply: %v", err)
	}
	if err := r.kernel.CloseSubstate(h); err != nil {
		t.Fatalf("close: %v", err)
	}
	supply, err := DecodeValue(sv.Data)
	if err != nil {
		t.Fatalf("decode supply: %v", err)
	}
	if !supply.Decimal.Equal(NewDecimalFromInt64(100)) {
		t.Fatalf("unexpected total supply %s", supply.Decimal.String())
	}
}

func TestResourceManagerBurnDecreasesTotalSupply(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	bucket, err := r.MintFungible(resource, NewDecimalFromInt64(50))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.BurnFungibleBucket(bucket); err != nil {
		t.Fatalf("burn: %v", err)
	}

	h, err := r.kernel.LockSubstate(resource, ModuleObject, TupleKey(fieldTotalSupply), LockRead, nil)
	if err != nil {
		t.Fatalf("lock total supply: %v", err)
	}
	sv, err := r.kernel.ReadSubstate(h)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	r.kernel.CloseSubstate(h)
	supply, _ := DecodeValue(sv.Data)
	if !supply.Decimal.IsZero() {
		t.Fatalf("expected zero supply after burning entire mint, got %s", supply.Decimal.String())
	}
}

func TestResourceManagerMintNonFungibleRejectsDuplicateId(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateNonFungibleResourceManager()
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	if _, err := r.MintNonFungible(resource, "#1#", []byte("data")); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := r.MintNonFungible(resource, "#1#", []byte("data")); err == nil {
		t.Fatal("expected duplicate non-fungible id to be rejected")
	}
}

func TestResourceManagerMintRejectsNonPositiveAmount(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	if _, err := r.MintFungible(resource, ZeroDecimal()); err == nil {
		t.Fatal("expected mint of zero amount to be rejected")
	}
}
