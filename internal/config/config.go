package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Config holds all configuration for the arbitrage engine
type Config struct {
	RPC     RPCConfig
	Market  MarketConfig
	Arb     ArbConfig
	Fees    FeeConfig
	Metrics MetricsConfig
	Logging LoggingConfig
}

// RPCConfig holds Ethereum RPC configuration
type RPCConfig struct {
	URL            string
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// MarketConfig holds the addresses of one futarchy market. All addresses are
// hex strings here; Parse validates and types them.
type MarketConfig struct {
	FutarchyRouter string
	Proposal       string
	SwaprRouter    string
	BalancerVault  string
	BalancerPoolID string
	Collateral     string
	Company        string
	YesCollateral  string
	NoCollateral   string
	YesCompany     string
	NoCompany      string
	YesPool        string
	NoPool         string
	PredictionPool string
	BalancerPool   string
}

// ArbConfig holds engine settings
type ArbConfig struct {
	Implementation  string // batch executor implementation address
	AmountWei       string // trade size in collateral wei
	MinProfitWei    string // broadcast threshold
	PriceTolerance  float64
	SlippageCeiling float64 // max-input headroom on liquidation buys
	PollInterval    time.Duration
	SwapDeadline    time.Duration
	DryRun          bool
	ReceiptTimeout  time.Duration
	ReceiptInterval time.Duration
}

// FeeConfig holds gas pricing settings
type FeeConfig struct {
	GasLimit          uint64
	BaseFeeMultiplier float64
	MinTipWei         string
}

// MetricsConfig holds the Prometheus listener settings
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load reads configuration from environment and config file
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("rpc.url", "https://rpc.gnosischain.com")
	v.SetDefault("rpc.retry_attempts", 3)
	v.SetDefault("rpc.retry_delay", "1s")
	v.SetDefault("rpc.request_timeout", "30s")

	v.SetDefault("market.futarchy_router", "")
	v.SetDefault("market.proposal", "")
	v.SetDefault("market.swapr_router", "")
	v.SetDefault("market.balancer_vault", "")
	v.SetDefault("market.balancer_pool_id", "")
	v.SetDefault("market.collateral", "")
	v.SetDefault("market.company", "")
	v.SetDefault("market.yes_collateral", "")
	v.SetDefault("market.no_collateral", "")
	v.SetDefault("market.yes_company", "")
	v.SetDefault("market.no_company", "")
	v.SetDefault("market.yes_pool", "")
	v.SetDefault("market.no_pool", "")
	v.SetDefault("market.prediction_pool", "")
	v.SetDefault("market.balancer_pool", "")

	v.SetDefault("arb.implementation", "")
	v.SetDefault("arb.amount_wei", "10000000000000000")
	v.SetDefault("arb.min_profit_wei", "0")
	v.SetDefault("arb.price_tolerance", 0.02)
	v.SetDefault("arb.slippage_ceiling", 0.1)
	v.SetDefault("arb.poll_interval", "15s")
	v.SetDefault("arb.swap_deadline", "10m")
	v.SetDefault("arb.dry_run", true)
	v.SetDefault("arb.receipt_timeout", "2m")
	v.SetDefault("arb.receipt_interval", "3s")

	v.SetDefault("fees.gas_limit", 2000000)
	v.SetDefault("fees.base_fee_multiplier", 1.25)
	v.SetDefault("fees.min_tip_wei", "1000000000")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Environment variable support
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.futarchy-arb")

	// Read config file (optional)
	_ = v.ReadInConfig()

	retryDelay, _ := time.ParseDuration(v.GetString("rpc.retry_delay"))
	requestTimeout, _ := time.ParseDuration(v.GetString("rpc.request_timeout"))
	pollInterval, _ := time.ParseDuration(v.GetString("arb.poll_interval"))
	swapDeadline, _ := time.ParseDuration(v.GetString("arb.swap_deadline"))
	receiptTimeout, _ := time.ParseDuration(v.GetString("arb.receipt_timeout"))
	receiptInterval, _ := time.ParseDuration(v.GetString("arb.receipt_interval"))

	cfg := &Config{
		RPC: RPCConfig{
			URL:            v.GetString("rpc.url"),
			RetryAttempts:  v.GetInt("rpc.retry_attempts"),
			RetryDelay:     retryDelay,
			RequestTimeout: requestTimeout,
		},
		Market: MarketConfig{
			FutarchyRouter: v.GetString("market.futarchy_router"),
			Proposal:       v.GetString("market.proposal"),
			SwaprRouter:    v.GetString("market.swapr_router"),
			BalancerVault:  v.GetString("market.balancer_vault"),
			BalancerPoolID: v.GetString("market.balancer_pool_id"),
			Collateral:     v.GetString("market.collateral"),
			Company:        v.GetString("market.company"),
			YesCollateral:  v.GetString("market.yes_collateral"),
			NoCollateral:   v.GetString("market.no_collateral"),
			YesCompany:     v.GetString("market.yes_company"),
			NoCompany:      v.GetString("market.no_company"),
			YesPool:        v.GetString("market.yes_pool"),
			NoPool:         v.GetString("market.no_pool"),
			PredictionPool: v.GetString("market.prediction_pool"),
			BalancerPool:   v.GetString("market.balancer_pool"),
		},
		Arb: ArbConfig{
			Implementation:  v.GetString("arb.implementation"),
			AmountWei:       v.GetString("arb.amount_wei"),
			MinProfitWei:    v.GetString("arb.min_profit_wei"),
			PriceTolerance:  v.GetFloat64("arb.price_tolerance"),
			SlippageCeiling: v.GetFloat64("arb.slippage_ceiling"),
			PollInterval:    pollInterval,
			SwapDeadline:    swapDeadline,
			DryRun:          v.GetBool("arb.dry_run"),
			ReceiptTimeout:  receiptTimeout,
			ReceiptInterval: receiptInterval,
		},
		Fees: FeeConfig{
			GasLimit:          v.GetUint64("fees.gas_limit"),
			BaseFeeMultiplier: v.GetFloat64("fees.base_fee_multiplier"),
			MinTipWei:         v.GetString("fees.min_tip_wei"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	return cfg, nil
}

// Parse validates the configured market addresses and returns the typed market.
func (mc MarketConfig) Parse() (types.Market, error) {
	m := types.Market{}
	fields := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"market.futarchy_router", mc.FutarchyRouter, &m.FutarchyRouter},
		{"market.proposal", mc.Proposal, &m.Proposal},
		{"market.swapr_router", mc.SwaprRouter, &m.SwaprRouter},
		{"market.balancer_vault", mc.BalancerVault, &m.BalancerVault},
		{"market.collateral", mc.Collateral, &m.Collateral},
		{"market.company", mc.Company, &m.Company},
		{"market.yes_collateral", mc.YesCollateral, &m.YesCollateral},
		{"market.no_collateral", mc.NoCollateral, &m.NoCollateral},
		{"market.yes_company", mc.YesCompany, &m.YesCompany},
		{"market.no_company", mc.NoCompany, &m.NoCompany},
		{"market.yes_pool", mc.YesPool, &m.YesPool},
		{"market.no_pool", mc.NoPool, &m.NoPool},
		{"market.prediction_pool", mc.PredictionPool, &m.PredictionPool},
		{"market.balancer_pool", mc.BalancerPool, &m.BalancerPool},
	}
	for _, f := range fields {
		addr, err := parseAddress(f.name, f.raw)
		if err != nil {
			return types.Market{}, err
		}
		*f.dst = addr
	}

	poolID := mc.BalancerPoolID
	if !strings.HasPrefix(poolID, "0x") || len(poolID) != 66 {
		return types.Market{}, fmt.Errorf("market.balancer_pool_id: %q is not a 32-byte hex id", poolID)
	}
	m.BalancerPoolID = common.HexToHash(poolID)

	return m, nil
}

func parseAddress(name, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", name, raw)
	}
	addr := common.HexToAddress(raw)
	if err := types.ValidateAddress(addr); err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}
