package core

import (
	"fmt"
	"math/big"
)

// decimalScale is the fixed-point scale (18 decimal places) shared by every
// Decimal in the engine, matching the fungible-resource divisibility
// ceiling.
var decimalScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Decimal is a signed fixed-point number with 18 decimal places, backed by
// big.Int the way the teacher's Coin/ledger balances are backed by
// math/big (see common_structs.go's SynnergyConsensus.curDifficulty). Vault
// and fee-reserve balances never use floats so that conservation across a
// transaction's mints, burns, and transfers stays exact.
type Decimal struct {
	raw *big.Int // value * 10^18
}

// ZeroDecimal is the additive identity.
func ZeroDecimal() Decimal { return Decimal{raw: big.NewInt(0)} }

// NewDecimalFromInt64 builds a Decimal representing an integral amount.
func NewDecimalFromInt64(v int64) Decimal {
	return Decimal{raw: new(big.Int).Mul(big.NewInt(v), decimalScale)}
}

// NewDecimalRaw builds a Decimal from an already-scaled big.Int (value *
// 10^18). Used when decoding the wire format.
func NewDecimalRaw(raw *big.Int) Decimal {
	return Decimal{raw: new(big.Int).Set(raw)}
}

func (d Decimal) Raw() *big.Int { return new(big.Int).Set(d.raw) }

func (d Decimal) IsZero() bool { return d.raw == nil || d.raw.Sign() == 0 }
func (d Decimal) Sign() int {
	if d.raw == nil {
		return 0
	}
	return d.raw.Sign()
}

func (d Decimal) Add(o Decimal) Decimal { return Decimal{raw: new(big.Int).Add(d.raw, o.raw)} }
func (d Decimal) Sub(o Decimal) Decimal { return Decimal{raw: new(big.Int).Sub(d.raw, o.raw)} }

func (d Decimal) Cmp(o Decimal) int { return d.raw.Cmp(o.raw) }

func (d Decimal) LessThan(o Decimal) bool    { return d.Cmp(o) < 0 }
func (d Decimal) GreaterThan(o Decimal) bool { return d.Cmp(o) > 0 }
func (d Decimal) Equal(o Decimal) bool       { return d.Cmp(o) == 0 }

// MulPercent multiplies by an integer percentage (e.g. the validator tip on execution charges),
// truncating toward zero like the reference engine's cost-unit pricing.
func (d Decimal) MulPercent(pct int64) Decimal {
	n := new(big.Int).Mul(d.raw, big.NewInt(pct))
	return Decimal{raw: n.Div(n, big.NewInt(100))}
}

func (d Decimal) String() string {
	if d.raw == nil {
		return "0"
	}
	q, r := new(big.Int).QuoRem(d.raw, decimalScale, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := new(big.Int).Abs(r)
	return fmt.Sprintf("%s.%018s", q.String(), frac.String())
}
