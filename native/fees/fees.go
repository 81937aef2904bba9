package fees

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Complexity grades the declared difficulty of an escrowed task. It scales the
// base fee independently of the volume and reputation discounts.
type Complexity uint8

const (
	ComplexityLow Complexity = iota
	ComplexityMedium
	ComplexityHigh
)

// Valid reports whether the complexity value is within the supported range.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logs and event attributes.
func (c Complexity) String() string {
	switch c {
	case ComplexityLow:
		return "low"
	case ComplexityMedium:
		return "medium"
	case ComplexityHigh:
		return "high"
	default:
		return fmt.Sprintf("complexity(%d)", uint8(c))
	}
}

// ParseComplexity maps the canonical tier names onto Complexity values.
func ParseComplexity(raw string) (Complexity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return ComplexityLow, nil
	case "medium":
		return ComplexityMedium, nil
	case "high":
		return ComplexityHigh, nil
	default:
		return 0, fmt.Errorf("fees: unknown complexity %q", raw)
	}
}

var (
	errNilAmount      = errors.New("fees: amount required")
	errNegativeAmount = errors.New("fees: amount must be non-negative")
)

// Reputation thresholds and percentage factors applied by the discount step.
const (
	reputationTier1Score = 500
	reputationTier2Score = 800
	reputationTier1Pct   = 95
	reputationTier2Pct   = 90
)

// Complexity percentage factors. Medium is the identity step.
const (
	complexityLowPct    = 75
	complexityMediumPct = 100
	complexityHighPct   = 150
)

// Volume discount percentage factors keyed to the policy's amount tiers.
const (
	volumeTier1Pct = 90
	volumeTier2Pct = 80
	volumeTier3Pct = 70
)

// Policy carries the admin-tunable parameters of the fee pipeline. Rates are
// expressed in basis points of the escrow amount; tier thresholds are absolute
// amounts in the ledger's smallest unit.
type Policy struct {
	BaseFeeBps     uint32   `json:"baseFeeBps" toml:"base_fee_bps"`
	MinFeeBps      uint32   `json:"minFeeBps" toml:"min_fee_bps"`
	MaxFeeBps      uint32   `json:"maxFeeBps" toml:"max_fee_bps"`
	CrossDomainBps uint32   `json:"crossDomainBps" toml:"cross_domain_bps"`
	VolumeTier1    *big.Int `json:"volumeTier1" toml:"-"`
	VolumeTier2    *big.Int `json:"volumeTier2" toml:"-"`
	VolumeTier3    *big.Int `json:"volumeTier3" toml:"-"`
}

// DefaultPolicy returns the production defaults: 1% base fee, clamp between
// 0.5% and 3%, 0.5% cross-domain surcharge, and volume tiers at 1k, 10k and
// 50k units of six-decimal USDC.
func DefaultPolicy() Policy {
	return Policy{
		BaseFeeBps:     100,
		MinFeeBps:      50,
		MaxFeeBps:      300,
		CrossDomainBps: 50,
		VolumeTier1:    new(big.Int).SetUint64(1_000_000_000),
		VolumeTier2:    new(big.Int).SetUint64(10_000_000_000),
		VolumeTier3:    new(big.Int).SetUint64(50_000_000_000),
	}
}

// Clone returns a deep copy of the policy so callers can mutate the copy
// without aliasing the tier thresholds.
func (p Policy) Clone() Policy {
	clone := p
	if p.VolumeTier1 != nil {
		clone.VolumeTier1 = new(big.Int).Set(p.VolumeTier1)
	}
	if p.VolumeTier2 != nil {
		clone.VolumeTier2 = new(big.Int).Set(p.VolumeTier2)
	}
	if p.VolumeTier3 != nil {
		clone.VolumeTier3 = new(big.Int).Set(p.VolumeTier3)
	}
	return clone
}

// Validate ensures the policy is internally consistent before it is applied.
func (p Policy) Validate() error {
	if p.BaseFeeBps > 10_000 {
		return fmt.Errorf("fees: base fee bps out of range: %d", p.BaseFeeBps)
	}
	if p.MinFeeBps > 10_000 || p.MaxFeeBps > 10_000 {
		return fmt.Errorf("fees: clamp bps out of range")
	}
	if p.MinFeeBps > p.MaxFeeBps {
		return fmt.Errorf("fees: min fee bps %d exceeds max fee bps %d", p.MinFeeBps, p.MaxFeeBps)
	}
	if p.CrossDomainBps > 10_000 {
		return fmt.Errorf("fees: cross-domain bps out of range: %d", p.CrossDomainBps)
	}
	tiers := []*big.Int{p.VolumeTier1, p.VolumeTier2, p.VolumeTier3}
	var prev *big.Int
	for i, tier := range tiers {
		if tier == nil || tier.Sign() <= 0 {
			return fmt.Errorf("fees: volume tier %d must be positive", i+1)
		}
		if prev != nil && tier.Cmp(prev) <= 0 {
			return fmt.Errorf("fees: volume tier %d must exceed tier %d", i+1, i)
		}
		prev = tier
	}
	return nil
}

// Calculate runs the tiered fee pipeline against the supplied escrow amount.
// Each step floor-divides so results stay bit-exact with the reference
// contract arithmetic: base rate, complexity multiplier, volume discount
// (first matching tier, highest first), reputation discount, additive
// cross-domain surcharge, and finally a clamp derived from the original
// amount.
func Calculate(p Policy, amount *big.Int, complexity Complexity, reputation uint32, crossDomain bool) (*big.Int, error) {
	if amount == nil {
		return nil, errNilAmount
	}
	if amount.Sign() < 0 {
		return nil, errNegativeAmount
	}
	if !complexity.Valid() {
		return nil, fmt.Errorf("fees: invalid complexity %d", complexity)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	fee := mulDivFloor(amount, uint64(p.BaseFeeBps), 10_000)

	switch complexity {
	case ComplexityHigh:
		fee = mulDivFloor(fee, complexityHighPct, 100)
	case ComplexityLow:
		fee = mulDivFloor(fee, complexityLowPct, 100)
	default:
		fee = mulDivFloor(fee, complexityMediumPct, 100)
	}

	switch {
	case amount.Cmp(p.VolumeTier3) >= 0:
		fee = mulDivFloor(fee, volumeTier3Pct, 100)
	case amount.Cmp(p.VolumeTier2) >= 0:
		fee = mulDivFloor(fee, volumeTier2Pct, 100)
	case amount.Cmp(p.VolumeTier1) >= 0:
		fee = mulDivFloor(fee, volumeTier1Pct, 100)
	}

	switch {
	case reputation >= reputationTier2Score:
		fee = mulDivFloor(fee, reputationTier2Pct, 100)
	case reputation >= reputationTier1Score:
		fee = mulDivFloor(fee, reputationTier1Pct, 100)
	}

	if crossDomain {
		surcharge := mulDivFloor(amount, uint64(p.CrossDomainBps), 10_000)
		fee = new(big.Int).Add(fee, surcharge)
	}

	minFee := mulDivFloor(amount, uint64(p.MinFeeBps), 10_000)
	maxFee := mulDivFloor(amount, uint64(p.MaxFeeBps), 10_000)
	if fee.Cmp(minFee) < 0 {
		fee = minFee
	} else if fee.Cmp(maxFee) > 0 {
		fee = maxFee
	}
	return fee, nil
}

func mulDivFloor(v *big.Int, num, den uint64) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(v, new(big.Int).SetUint64(num))
	return out.Div(out, new(big.Int).SetUint64(den))
}
