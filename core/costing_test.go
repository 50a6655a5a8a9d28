package core

import "testing"

func TestFeeReserveStaysWithinLoanUntilExhausted(t *testing.T) {
	r := NewFeeReserve(CostingParameters{
		CostUnitPrice:   NewDecimalFromInt64(1),
		SystemLoanUnits: 100,
		MaxCostUnits:    1000,
	})
	if err := r.ChargeExecution(60); err != nil {
		t.Fatalf("charge within loan: %v", err)
	}
	if !r.Summary().XrdOwed.IsZero() {
		t.Fatal("expected no xrd owed while loan covers consumption")
	}
	if err := r.ChargeExecution(60); err != nil {
		t.Fatalf("charge past loan: %v", err)
	}
	if r.Summary().XrdOwed.IsZero() {
		t.Fatal("expected xrd owed once loan exhausted")
	}
}

func TestFeeReserveRepayAllFailsWithoutLockedFee(t *testing.T) {
	r := NewFeeReserve(CostingParameters{
		CostUnitPrice:   NewDecimalFromInt64(1),
		SystemLoanUnits: 10,
		MaxCostUnits:    1000,
	})
	if err := r.ChargeExecution(50); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if err := r.RepayAll(); err == nil {
		t.Fatal("expected LoanRepaymentFailed without a locked fee")
	}
}

func TestFeeReserveRepayAllSucceedsWithSufficientLock(t *testing.T) {
	r := NewFeeReserve(CostingParameters{
		CostUnitPrice:   NewDecimalFromInt64(1),
		SystemLoanUnits: 10,
		MaxCostUnits:    1000,
	})
	var vault NodeId
	vault[0] = byte(EntityInternalFungibleVault)
	r.LockFee(vault, NewDecimalFromInt64(1000), false)
	if err := r.ChargeExecution(50); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if err := r.RepayAll(); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if !r.LoanRepaid() {
		t.Fatal("expected loan repaid")
	}
}

func TestFeeReserveLimitExceeded(t *testing.T) {
	r := NewFeeReserve(CostingParameters{
		CostUnitPrice:   NewDecimalFromInt64(1),
		SystemLoanUnits: 10,
		MaxCostUnits:    20,
	})
	if err := r.ChargeExecution(21); err == nil {
		t.Fatal("expected LimitExceeded")
	}
}

func TestFeeReserveTipInflatesExecutionPriceButNotRoyalty(t *testing.T) {
	r := NewFeeReserve(CostingParameters{
		CostUnitPrice:   NewDecimalFromInt64(1),
		SystemLoanUnits: 0,
		MaxCostUnits:    1000,
		TipPercentage:   10,
	})
	if err := r.ChargeExecution(100); err != nil {
		t.Fatalf("charge execution: %v", err)
	}
	if !r.Summary().XrdOwed.Equal(NewDecimalFromInt64(110)) {
		t.Fatalf("expected tip-inflated owed of 110, got %s", r.Summary().XrdOwed.String())
	}

	r2 := NewFeeReserve(CostingParameters{
		CostUnitPrice:   NewDecimalFromInt64(1),
		SystemLoanUnits: 0,
		MaxCostUnits:    1000,
		TipPercentage:   10,
	})
	if err := r2.ChargeRoyalty(100); err != nil {
		t.Fatalf("charge royalty: %v", err)
	}
	if !r2.Summary().RoyaltyOwed.Equal(NewDecimalFromInt64(100)) {
		t.Fatalf("expected royalty priced without tip at 100, got %s", r2.Summary().RoyaltyOwed.String())
	}
}

func TestFeeReserveContingentLockDoesNotCoverOwed(t *testing.T) {
	r := NewFeeReserve(CostingParameters{
		CostUnitPrice:   NewDecimalFromInt64(1),
		SystemLoanUnits: 10,
		MaxCostUnits:    1000,
	})
	var vault NodeId
	vault[0] = byte(EntityInternalFungibleVault)
	r.LockFee(vault, NewDecimalFromInt64(1000), true)
	if err := r.ChargeExecution(50); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if err := r.RepayAll(); err == nil {
		t.Fatal("expected LoanRepaymentFailed: a contingent lock must not cover xrd_owed")
	}
	if len(r.Summary().LockedVaults) != 1 || !r.Summary().LockedVaults[0].Contingent {
		t.Fatal("expected the contingent lock to still appear in the fee summary")
	}
}
