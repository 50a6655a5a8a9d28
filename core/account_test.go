package core

import "testing"

func newTestAccountModule() (*AccountModule, *ResourceModule, *Kernel) {
	r, k := newTestResourceModule()
	return NewAccountModule(k, NewSystem(k), r), r, k
}

func TestAccountDepositOpensVaultLazilyAndAccumulates(t *testing.T) {
	a, r, _ := newTestAccountModule()
	var owner NodeId
	owner[0] = byte(EntityGlobalFungibleResource)
	owner[1] = 1
	account, err := a.CreateAccount(owner)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	bucket1, err := r.MintFungible(resource, NewDecimalFromInt64(10))
	if err != nil {
		t.Fatalf("mint 1: %v", err)
	}
	if err := a.DepositFungible(account, bucket1); err != nil {
		t.Fatalf("deposit 1: %v", err)
	}
	bucket2, err := r.MintFungible(resource, NewDecimalFromInt64(5))
	if err != nil {
		t.Fatalf("mint 2: %v", err)
	}
	if err := a.DepositFungible(account, bucket2); err != nil {
		t.Fatalf("deposit 2: %v", err)
	}

	vault, err := a.vaultFor(account, resource, false)
	if err != nil {
		t.Fatalf("vault for: %v", err)
	}
	balance, err := r.amountOf(vault)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if !balance.Equal(NewDecimalFromInt64(15)) {
		t.Fatalf("unexpected accumulated balance %s", balance.String())
	}
}

func TestAccountWithdrawRequiresOwnerProof(t *testing.T) {
	a, r, _ := newTestAccountModule()
	var owner NodeId
	owner[0] = byte(EntityGlobalFungibleResource)
	owner[1] = 2
	account, err := a.CreateAccount(owner)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	resource, err := r.CreateFungibleResourceManager(18)
	if err != nil {
		t.Fatalf("create resource manager: %v", err)
	}
	bucket, err := r.MintFungible(resource, NewDecimalFromInt64(20))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := a.DepositFungible(account, bucket); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := a.WithdrawFungible(account, resource, NewDecimalFromInt64(1), ProofSet{}); err == nil {
		t.Fatal("expected withdraw without owner proof to be denied")
	}

	proofs := ProofSet{owner: true}
	withdrawn, err := a.WithdrawFungible(account, resource, NewDecimalFromInt64(8), proofs)
	if err != nil {
		t.Fatalf("withdraw with owner proof: %v", err)
	}
	amount, err := r.amountOf(withdrawn)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if !amount.Equal(NewDecimalFromInt64(8)) {
		t.Fatalf("unexpected withdrawn amount %s", amount.String())
	}
}
