package core

import "testing"

func TestVaultPutAndTakeFungibleHeapOnly(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	vault := r.CreateEmptyFungibleVault(resource)
	bucket, err := r.MintFungible(resource, NewDecimalFromInt64(30))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.VaultPutFungible(vault, bucket); err != nil {
		t.Fatalf("put: %v", err)
	}
	balance, err := r.amountOf(vault)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if !balance.Equal(NewDecimalFromInt64(30)) {
		t.Fatalf("unexpected vault balance %s", balance.String())
	}

	taken, err := r.VaultTakeFungible(vault, NewDecimalFromInt64(10))
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	takenAmount, err := r.amountOf(taken)
	if err != nil {
		t.Fatalf("amount of taken bucket: %v", err)
	}
	if !takenAmount.Equal(NewDecimalFromInt64(10)) {
		t.Fatalf("unexpected taken amount %s", takenAmount.String())
	}
	remaining, err := r.amountOf(vault)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if !remaining.Equal(NewDecimalFromInt64(20)) {
		t.Fatalf("unexpected remaining balance %s", remaining.String())
	}
}

func TestVaultTakeFungibleRejectsInsufficientBalance(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	vault := r.CreateEmptyFungibleVault(resource)
	if _, err := r.VaultTakeFungible(vault, NewDecimalFromInt64(1)); err == nil {
		t.Fatal("expected insufficient balance error")
	}
}

func TestVaultPutFungibleRejectsResourceMismatch(t *testing.T) {
	r, _ := newTestResourceModule()
	resourceA, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager a: %v", err)
	}
	resourceB, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager b: %v", err)
	}
	vault := r.CreateEmptyFungibleVault(resourceA)
	bucket, err := r.MintFungible(resourceB, NewDecimalFromInt64(5))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.VaultPutFungible(vault, bucket); err == nil {
		t.Fatal("expected resource mismatch error")
	}
}

func TestVaultNonFungiblePutAndTake(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateNonFungibleResourceManager()
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	vault := r.CreateEmptyNonFungibleVault(resource)
	b1, err := r.MintNonFungible(resource, "#1#", nil)
	if err != nil {
		t.Fatalf("mint 1: %v", err)
	}
	b2, err := r.MintNonFungible(resource, "#2#", nil)
	if err != nil {
		t.Fatalf("mint 2: %v", err)
	}
	if err := r.VaultPutNonFungible(vault, b1); err != nil {
		t.Fatalf("put 1: %v", err)
	}
	if err := r.VaultPutNonFungible(vault, b2); err != nil {
		t.Fatalf("put 2: %v", err)
	}

	taken, err := r.VaultTakeNonFungible(vault, []string{"#1#"})
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	ids, err := r.idsOf(taken)
	if err != nil {
		t.Fatalf("ids of taken: %v", err)
	}
	if len(ids) != 1 || ids[0] != "#1#" {
		t.Fatalf("unexpected taken ids %v", ids)
	}
	remaining, err := r.idsOf(vault)
	if err != nil {
		t.Fatalf("ids of vault: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != "#2#" {
		t.Fatalf("unexpected remaining ids %v", remaining)
	}
}

func TestVaultTakeNonFungibleRejectsMissingId(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateNonFungibleResourceManager()
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	vault := r.CreateEmptyNonFungibleVault(resource)
	if _, err := r.VaultTakeNonFungible(vault, []string{"#missing#"}); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestVaultWorksAfterPersistNode(t *testing.T) {
	r, _ := newTestResourceModule()
	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	vault := r.CreateEmptyFungibleVault(resource)
	if err := r.kernel.PersistNode(vault); err != nil {
		t.Fatalf("persist vault: %v", err)
	}

	bucket, err := r.MintFungible(resource, NewDecimalFromInt64(7))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.VaultPutFungible(vault, bucket); err != nil {
		t.Fatalf("put into persisted vault: %v", err)
	}
	balance, err := r.amountOf(vault)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if !balance.Equal(NewDecimalFromInt64(7)) {
		t.Fatalf("unexpected balance %s", balance.String())
	}
}
