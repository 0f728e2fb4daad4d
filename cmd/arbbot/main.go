package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/devlongs/futarchy-arb/internal/arb"
	"github.com/devlongs/futarchy-arb/internal/bundle"
	"github.com/devlongs/futarchy-arb/internal/config"
	"github.com/devlongs/futarchy-arb/internal/eth"
	"github.com/devlongs/futarchy-arb/internal/executor"
	"github.com/devlongs/futarchy-arb/internal/metrics"
	"github.com/devlongs/futarchy-arb/internal/output"
	"github.com/devlongs/futarchy-arb/internal/wallet"
	"github.com/devlongs/futarchy-arb/pkg/types"

	"github.com/ethereum/go-ethereum/common"
)

// Engine is the arbitrage engine main loop
type Engine struct {
	client    *eth.Client
	watcher   *arb.Watcher
	optimizer *arb.Optimizer
	exec      *executor.Executor
	logger    *output.Logger
	cfg       *config.Config

	market    types.Market
	sender    common.Address
	minProfit *big.Int

	rounds uint64
}

// NewEngine wires the engine from configuration
func NewEngine(cfg *config.Config) (*Engine, error) {
	lgr := output.NewLogger(cfg.Logging)

	market, err := cfg.Market.Parse()
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(cfg.Arb.Implementation) {
		return nil, fmt.Errorf("arb.implementation: %q is not a hex address", cfg.Arb.Implementation)
	}
	implementation := common.HexToAddress(cfg.Arb.Implementation)

	amount, ok := new(big.Int).SetString(cfg.Arb.AmountWei, 10)
	if !ok {
		return nil, fmt.Errorf("arb.amount_wei: invalid amount %q", cfg.Arb.AmountWei)
	}
	minProfit, ok := new(big.Int).SetString(cfg.Arb.MinProfitWei, 10)
	if !ok {
		return nil, fmt.Errorf("arb.min_profit_wei: invalid amount %q", cfg.Arb.MinProfitWei)
	}

	client, err := eth.NewClient(cfg.RPC)
	if err != nil {
		return nil, err
	}

	w, err := wallet.FromEnv()
	if err != nil {
		client.Close()
		return nil, err
	}

	sim := bundle.NewSimulator(client, implementation)
	opt := arb.NewOptimizer(sim, market, w.Address(), cfg.Arb.SlippageCeiling)
	watcher := arb.NewWatcher(client, market, cfg.Arb.PriceTolerance, amount)

	exec, err := executor.New(client, w, client.ChainID(), implementation, cfg.Fees,
		cfg.Arb.ReceiptTimeout, cfg.Arb.ReceiptInterval)
	if err != nil {
		client.Close()
		return nil, err
	}

	log.Info().
		Str("sender", w.Address().Hex()).
		Str("implementation", implementation.Hex()).
		Str("amountWei", amount.String()).
		Bool("dryRun", cfg.Arb.DryRun).
		Msg("Engine initialized")

	return &Engine{
		client:    client,
		watcher:   watcher,
		optimizer: opt,
		exec:      exec,
		logger:    lgr,
		cfg:       cfg,
		market:    market,
		sender:    w.Address(),
		minProfit: minProfit,
	}, nil
}

// Start begins the evaluation loop
func (e *Engine) Start(ctx context.Context) error {
	log.Info().Msg("Starting arbitrage engine...")

	ticker := time.NewTicker(e.cfg.Arb.PollInterval)
	defer ticker.Stop()

	// Stats ticker (every 30 seconds)
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down engine...")
			return ctx.Err()

		case <-statsTicker.C:
			e.logger.LogStats()

		case <-ticker.C:
			if err := e.evaluateRound(ctx); err != nil {
				e.logger.LogError(err, "evaluating round")
			}
		}
	}
}

// evaluateRound runs one full cycle: read prices, plan, and possibly trade
func (e *Engine) evaluateRound(ctx context.Context) error {
	e.rounds++
	metrics.RoundsTotal.Inc()

	opp, prices, err := e.watcher.Check(ctx)
	if err != nil {
		return err
	}
	e.logger.LogRound(e.rounds, prices.YesPrice, prices.NoPrice, prices.BalancerPrice)
	metrics.BalancerPrice.Set(prices.BalancerPrice)
	metrics.IdealPrice.Set(prices.IdealPrice)

	if opp == nil {
		return nil
	}
	e.logger.LogOpportunity(*opp, prices.IdealPrice, prices.BalancerPrice)
	metrics.OpportunitiesTotal.WithLabelValues(opp.Direction.String()).Inc()

	if err := arb.Preflight(ctx, e.client, e.market, e.sender, opp.Amount); err != nil {
		return err
	}

	header, err := e.client.LatestHeader(ctx)
	if err != nil {
		return err
	}
	deadline := new(big.Int).SetUint64(header.Time + uint64(e.cfg.Arb.SwapDeadline.Seconds()))

	start := time.Now()
	result, err := e.optimizer.Optimize(ctx, *opp, deadline)
	if err != nil {
		metrics.SimulationsTotal.WithLabelValues("optimize", "error").Inc()
		var revert *bundle.RevertError
		if errors.As(err, &revert) {
			log.Warn().Int("call", revert.Index).Str("reason", revert.Reason).Msg("Plan reverted in simulation")
			return nil
		}
		return err
	}
	metrics.SimulationsTotal.WithLabelValues("optimize", "ok").Inc()
	e.logger.LogPhase("optimize", result.Bundle.Len(), time.Since(start))

	e.logger.LogPlan(result.Bundle.Len(), result.Target, result.NetProfit, result.Plan.Excess)
	profitF, _ := new(big.Float).SetInt(result.NetProfit).Float64()
	metrics.NetProfitWei.Set(profitF)

	if result.NetProfit.Cmp(e.minProfit) < 0 {
		log.Info().
			Str("netProfit", result.NetProfit.String()).
			Str("minProfit", e.minProfit.String()).
			Msg("Below profit threshold, skipping")
		return nil
	}

	if e.cfg.Arb.DryRun {
		log.Info().Str("netProfit", result.NetProfit.String()).Msg("Dry run, not broadcasting")
		return nil
	}

	tx, err := e.exec.Execute(ctx, result.Bundle)
	if err != nil {
		return err
	}
	e.logger.LogBroadcast(tx.Hash().Hex(), tx.Nonce(), tx.Gas())

	receipt, err := e.exec.WaitMined(ctx, tx.Hash())
	if err != nil {
		metrics.TradesTotal.WithLabelValues("timeout").Inc()
		return err
	}

	success := receipt.Status == 1
	if success {
		metrics.TradesTotal.WithLabelValues("success").Inc()
	} else {
		metrics.TradesTotal.WithLabelValues("reverted").Inc()
	}
	e.logger.LogReceipt(tx.Hash().Hex(), receipt.BlockNumber.Uint64(), receipt.GasUsed, success, result.NetProfit)

	return nil
}

// Close shuts down the engine
func (e *Engine) Close() {
	e.client.Close()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Create engine
	engine, err := NewEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}
	defer engine.Close()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr)
		})
	}
	g.Go(func() error {
		return engine.Start(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Engine error")
	}

	log.Info().Msg("Arbitrage engine stopped")
}
