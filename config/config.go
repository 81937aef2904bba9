package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"agentpay/native/escrow"
	"agentpay/native/fees"
)

// Config carries the escrow service's deployment settings: storage location,
// trusted identities, engine limits and the fee policy. Amount fields are
// decimal strings so six-decimal USDC values survive TOML round-trips intact.
type Config struct {
	DataDir     string     `toml:"DataDir"`
	Environment string     `toml:"Environment"`
	Identities  Identities `toml:"identities"`
	Limits      Limits     `toml:"limits"`
	Fees        FeePolicy  `toml:"fees"`
}

// Identities names the privileged addresses the engine trusts.
type Identities struct {
	Verifier     string `toml:"verifier"`
	Admin        string `toml:"admin"`
	FeeCollector string `toml:"fee_collector"`
	Vault        string `toml:"vault"`
}

// Limits bounds job creation and the dispute window.
type Limits struct {
	MinEscrowAmount      string `toml:"min_escrow_amount"`
	MaxEscrowAmount      string `toml:"max_escrow_amount"`
	MinDeadlineSeconds   int64  `toml:"min_deadline_seconds"`
	MaxDeadlineSeconds   int64  `toml:"max_deadline_seconds"`
	DisputeWindowSeconds int64  `toml:"dispute_window_seconds"`
}

// FeePolicy mirrors fees.Policy with string tier thresholds.
type FeePolicy struct {
	BaseFeeBps     uint32 `toml:"base_fee_bps"`
	MinFeeBps      uint32 `toml:"min_fee_bps"`
	MaxFeeBps      uint32 `toml:"max_fee_bps"`
	CrossDomainBps uint32 `toml:"cross_domain_bps"`
	VolumeTier1    string `toml:"volume_tier1"`
	VolumeTier2    string `toml:"volume_tier2"`
	VolumeTier3    string `toml:"volume_tier3"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists. Identities are
// intentionally unset; deployments must fill them before the engine starts.
func Default() *Config {
	params := escrow.DefaultParams()
	policy := fees.DefaultPolicy()
	return &Config{
		DataDir:     "./escrow-data",
		Environment: "dev",
		Limits: Limits{
			MinEscrowAmount:      params.MinEscrowAmount.String(),
			MaxEscrowAmount:      params.MaxEscrowAmount.String(),
			MinDeadlineSeconds:   params.MinDeadline,
			MaxDeadlineSeconds:   params.MaxDeadline,
			DisputeWindowSeconds: params.DisputeWindow,
		},
		Fees: FeePolicy{
			BaseFeeBps:     policy.BaseFeeBps,
			MinFeeBps:      policy.MinFeeBps,
			MaxFeeBps:      policy.MaxFeeBps,
			CrossDomainBps: policy.CrossDomainBps,
			VolumeTier1:    policy.VolumeTier1.String(),
			VolumeTier2:    policy.VolumeTier2.String(),
			VolumeTier3:    policy.VolumeTier3.String(),
		},
	}
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaults.DataDir
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = defaults.Environment
	}
	if strings.TrimSpace(c.Limits.MinEscrowAmount) == "" {
		c.Limits = defaults.Limits
	}
	if c.Fees.BaseFeeBps == 0 && strings.TrimSpace(c.Fees.VolumeTier1) == "" {
		c.Fees = defaults.Fees
	}
}

// Validate checks the configuration without resolving it into engine types.
func (c *Config) Validate() error {
	if _, err := c.EngineParams(); err != nil {
		return err
	}
	if _, err := c.FeeEnginePolicy(); err != nil {
		return err
	}
	if _, _, _, _, err := c.EngineIdentities(); err != nil {
		return err
	}
	return nil
}

// EngineParams resolves the configured limits into escrow engine parameters.
func (c *Config) EngineParams() (escrow.Params, error) {
	minAmount, err := parseAmount("limits.min_escrow_amount", c.Limits.MinEscrowAmount)
	if err != nil {
		return escrow.Params{}, err
	}
	maxAmount, err := parseAmount("limits.max_escrow_amount", c.Limits.MaxEscrowAmount)
	if err != nil {
		return escrow.Params{}, err
	}
	params := escrow.Params{
		MinEscrowAmount: minAmount,
		MaxEscrowAmount: maxAmount,
		MinDeadline:     c.Limits.MinDeadlineSeconds,
		MaxDeadline:     c.Limits.MaxDeadlineSeconds,
		DisputeWindow:   c.Limits.DisputeWindowSeconds,
	}
	if err := params.Validate(); err != nil {
		return escrow.Params{}, err
	}
	return params, nil
}

// FeeEnginePolicy resolves the configured fee settings into a fees.Policy.
func (c *Config) FeeEnginePolicy() (fees.Policy, error) {
	tier1, err := parseAmount("fees.volume_tier1", c.Fees.VolumeTier1)
	if err != nil {
		return fees.Policy{}, err
	}
	tier2, err := parseAmount("fees.volume_tier2", c.Fees.VolumeTier2)
	if err != nil {
		return fees.Policy{}, err
	}
	tier3, err := parseAmount("fees.volume_tier3", c.Fees.VolumeTier3)
	if err != nil {
		return fees.Policy{}, err
	}
	policy := fees.Policy{
		BaseFeeBps:     c.Fees.BaseFeeBps,
		MinFeeBps:      c.Fees.MinFeeBps,
		MaxFeeBps:      c.Fees.MaxFeeBps,
		CrossDomainBps: c.Fees.CrossDomainBps,
		VolumeTier1:    tier1,
		VolumeTier2:    tier2,
		VolumeTier3:    tier3,
	}
	if err := policy.Validate(); err != nil {
		return fees.Policy{}, err
	}
	return policy, nil
}

// EngineIdentities resolves the configured hex addresses in the order the
// engine wires them: verifier, admin, fee collector, vault.
func (c *Config) EngineIdentities() (verifier, admin, feeCollector, vault [20]byte, err error) {
	if verifier, err = parseAddress("identities.verifier", c.Identities.Verifier); err != nil {
		return
	}
	if admin, err = parseAddress("identities.admin", c.Identities.Admin); err != nil {
		return
	}
	if feeCollector, err = parseAddress("identities.fee_collector", c.Identities.FeeCollector); err != nil {
		return
	}
	vault, err = parseAddress("identities.vault", c.Identities.Vault)
	return
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("config: %s required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("config: %s is not a decimal amount: %q", field, value)
	}
	return amount, nil
}

func parseAddress(field, value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("config: %s is not a hex address: %q", field, value)
	}
	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return [20]byte{}, fmt.Errorf("config: %s must be non-zero", field)
	}
	return addr, nil
}
