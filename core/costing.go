package core

import "math/big"

// BaseInvocationCost is the flat per-invoke cost-unit charge applied before
// any blueprint-specific costing: every invoke, substate touch, and byte
// of state written consumes cost units.
const BaseInvocationCost uint64 = 100

const (
	CostPerSubstateRead  uint64 = 50
	CostPerSubstateWrite uint64 = 200
	CostPerStateByte     uint64 = 1
)

// CostingParameters fixes the price of a cost unit in XRD, the validator
// tip applied on top of that base price, and the one-time system loan
// extended to every transaction before fee payment is observed.
type CostingParameters struct {
	CostUnitPrice   Decimal
	USDPrice        Decimal
	SystemLoanUnits uint64
	MaxCostUnits    uint64
	TipPercentage   int64 // effective execution price = base * (1 + TipPercentage/100)
}

// DefaultCostingParameters mirrors the constants radix-engine ships as its
// genesis costing configuration (grounded on
// original_source/radix-engine/src/system/system_modules/costing/fee_reserve.rs's
// SystemLoanFeeReserve::new defaults).
func DefaultCostingParameters() CostingParameters {
	price, _ := new(big.Int).SetString("100000000000", 10) // 10^-7 XRD per cost unit, scaled by 10^18
	return CostingParameters{
		CostUnitPrice:   NewDecimalRaw(price),
		SystemLoanUnits: 4_000_000,
		MaxCostUnits:    100_000_000,
	}
}

// FeeReserve implements the system-loan cost-unit accounting model: cost
// units are consumed freely up to the loan; once exhausted, lock_fee must
// have deposited enough XRD to keep covering consumption, or the
// transaction aborts.
type FeeReserve struct {
	params CostingParameters

	consumedUnits uint64
	remainingLoan uint64

	xrdOwed             Decimal
	remainingXrdBalance Decimal
	royaltyOwed         Decimal

	loanRepaid bool
	vaultLocks []LockedVault
}

// LockedVault records one lock_fee deposit contributing to the reserve.
type LockedVault struct {
	Vault      NodeId
	Amount     Decimal
	Contingent bool
}

// NewFeeReserve opens a reserve with a fresh system loan.
func NewFeeReserve(params CostingParameters) *FeeReserve {
	return &FeeReserve{
		params:              params,
		remainingLoan:       params.SystemLoanUnits,
		xrdOwed:             ZeroDecimal(),
		remainingXrdBalance: ZeroDecimal(),
		royaltyOwed:         ZeroDecimal(),
	}
}

// LockFee deposits amount of XRD from vault into the reserve. A contingent
// lock is recorded for the receipt's fee summary but, unlike a regular
// lock, never grows remaining_xrd_balance: its amount only actually backs
// payment once the condition it was reserved against resolves, which this
// engine does not track further, so a contingent lock_fee call can never by
// itself be used to cover xrd_owed.
func (r *FeeReserve) LockFee(vault NodeId, amount Decimal, contingent bool) {
	if !contingent {
		r.remainingXrdBalance = r.remainingXrdBalance.Add(amount)
	}
	r.vaultLocks = append(r.vaultLocks, LockedVault{Vault: vault, Amount: amount, Contingent: contingent})
}

// ChargeExecution consumes units of cost-unit allowance, drawing first
// against the system loan and then against xrd_owed, at the tip-inflated
// execution price (effective price = base * (1 + tip/100)).
func (r *FeeReserve) ChargeExecution(units uint64) error {
	return r.charge(units, &r.xrdOwed, true)
}

// ChargeRoyalty consumes units priced without the validator tip.
func (r *FeeReserve) ChargeRoyalty(units uint64) error {
	return r.charge(units, &r.royaltyOwed, false)
}

func (r *FeeReserve) charge(units uint64, owed *Decimal, tipped bool) error {
	if r.consumedUnits+units > r.params.MaxCostUnits {
		return costingErr(KindLimitExceeded, "cost unit limit %d exceeded", r.params.MaxCostUnits)
	}
	r.consumedUnits += units

	if r.remainingLoan >= units {
		r.remainingLoan -= units
		metricCostUnitsConsumed.Add(float64(units))
		return nil
	}
	fromBalance := units - r.remainingLoan
	r.remainingLoan = 0
	price := r.params.CostUnitPrice
	if tipped && r.params.TipPercentage != 0 {
		price = price.Add(price.MulPercent(r.params.TipPercentage))
	}
	due := price.MulUnits(fromBalance)
	*owed = owed.Add(due)
	metricCostUnitsConsumed.Add(float64(units))
	return nil
}

// RepayAll settles xrd_owed (plus royalties) out of remaining_xrd_balance.
// If the balance cannot cover it the reserve reports LoanRepaymentFailed,
// which the engine turns into a rejection with reason
// SuccessButFeeLoanNotRepaid rather than a committed failure.
func (r *FeeReserve) RepayAll() error {
	total := r.xrdOwed.Add(r.royaltyOwed)
	if r.remainingXrdBalance.LessThan(total) {
		return costingErr(KindLoanRepaymentFailed, "owed %s exceeds locked balance %s", total.String(), r.remainingXrdBalance.String())
	}
	r.remainingXrdBalance = r.remainingXrdBalance.Sub(total)
	r.xrdOwed = ZeroDecimal()
	r.royaltyOwed = ZeroDecimal()
	r.loanRepaid = true
	return nil
}

// LoanRepaid reports whether RepayAll has succeeded this transaction.
func (r *FeeReserve) LoanRepaid() bool { return r.loanRepaid }

// FeeSummary snapshots the final accounting for the receipt.
type FeeSummary struct {
	TotalCostUnitsConsumed uint64
	TotalCostUnitLimit     uint64
	XrdOwed                Decimal
	RoyaltyOwed            Decimal
	LockedVaults           []LockedVault
	LoanRepaid             bool
}

func (r *FeeReserve) Summary() FeeSummary {
	return FeeSummary{
		TotalCostUnitsConsumed: r.consumedUnits,
		TotalCostUnitLimit:     r.params.MaxCostUnits,
		XrdOwed:                r.xrdOwed,
		RoyaltyOwed:            r.royaltyOwed,
		LockedVaults:           r.vaultLocks,
		LoanRepaid:             r.loanRepaid,
	}
}

// MulUnits scales a per-cost-unit Decimal price by an integral unit count.
func (d Decimal) MulUnits(units uint64) Decimal {
	return Decimal{raw: new(big.Int).Mul(d.raw, new(big.Int).SetUint64(units))}
}
