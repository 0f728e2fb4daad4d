package output

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devlongs/futarchy-arb/internal/config"
	"github.com/devlongs/futarchy-arb/pkg/types"
)

// Logger handles output formatting for the arbitrage engine
type Logger struct {
	stats *Stats
}

// Stats tracks engine statistics
type Stats struct {
	RoundsEvaluated    uint64
	OpportunitiesFound uint64
	BundlesSimulated   uint64
	TradesExecuted     uint64
	TotalNetProfitWei  *big.Int
	StartTime          time.Time
}

// NewLogger creates a new engine logger
func NewLogger(cfg config.LoggingConfig) *Logger {
	// Configure zerolog
	switch cfg.Format {
	case "json":
		// Default JSON output
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	// Set log level
	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}

	return &Logger{
		stats: &Stats{
			TotalNetProfitWei: big.NewInt(0),
			StartTime:         time.Now(),
		},
	}
}

// LogRound logs the start of an evaluation round
func (l *Logger) LogRound(round uint64, yesPrice, noPrice, balancerPrice float64) {
	l.stats.RoundsEvaluated++

	log.Debug().
		Uint64("round", round).
		Float64("yesPrice", yesPrice).
		Float64("noPrice", noPrice).
		Float64("balancerPrice", balancerPrice).
		Msg("Evaluating market")
}

// LogOpportunity logs a detected price gap
func (l *Logger) LogOpportunity(opp types.Opportunity, idealPrice, actualPrice float64) {
	l.stats.OpportunitiesFound++

	log.Info().
		Str("direction", opp.Direction.String()).
		Str("amountWei", opp.Amount.String()).
		Float64("idealPrice", idealPrice).
		Float64("actualPrice", actualPrice).
		Msg("OPPORTUNITY DETECTED")
}

// LogPhase logs a completed simulation phase (debug level)
func (l *Logger) LogPhase(phase string, calls int, duration time.Duration) {
	l.stats.BundlesSimulated++

	log.Debug().
		Str("phase", phase).
		Int("calls", calls).
		Dur("duration", duration).
		Msg("Phase simulated")
}

// LogPlan logs a fully optimized bundle
func (l *Logger) LogPlan(calls int, target, netProfit *big.Int, excess types.Leg) {
	log.Info().
		Int("calls", calls).
		Str("targetWei", target.String()).
		Str("netProfit", weiToUnits(netProfit)).
		Str("excessLeg", excess.String()).
		Msg("Bundle optimized")
}

// LogBroadcast logs a submitted transaction
func (l *Logger) LogBroadcast(txHash string, nonce uint64, gasLimit uint64) {
	log.Info().
		Str("txHash", txHash).
		Uint64("nonce", nonce).
		Uint64("gasLimit", gasLimit).
		Msg("Transaction broadcast")
}

// LogReceipt logs a mined transaction and folds its profit into the totals
func (l *Logger) LogReceipt(txHash string, blockNumber uint64, gasUsed uint64, success bool, netProfit *big.Int) {
	if success {
		l.stats.TradesExecuted++
		if netProfit != nil {
			l.stats.TotalNetProfitWei.Add(l.stats.TotalNetProfitWei, netProfit)
		}
	}

	log.Info().
		Str("txHash", txHash).
		Uint64("block", blockNumber).
		Uint64("gasUsed", gasUsed).
		Bool("success", success).
		Msg("Transaction mined")
}

// LogStats logs current statistics
func (l *Logger) LogStats() {
	elapsed := time.Since(l.stats.StartTime)

	log.Info().
		Uint64("roundsEvaluated", l.stats.RoundsEvaluated).
		Uint64("opportunitiesFound", l.stats.OpportunitiesFound).
		Uint64("bundlesSimulated", l.stats.BundlesSimulated).
		Uint64("tradesExecuted", l.stats.TradesExecuted).
		Str("totalNetProfit", weiToUnits(l.stats.TotalNetProfitWei)).
		Dur("uptime", elapsed).
		Msg("Arbitrage Engine Stats")
}

// LogError logs an error
func (l *Logger) LogError(err error, context string) {
	log.Error().
		Err(err).
		Str("context", context).
		Msg("Error occurred")
}

// GetStats returns current statistics
func (l *Logger) GetStats() *Stats {
	return l.stats
}

// weiToUnits converts wei to whole-token units with 6 decimal places
func weiToUnits(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	units := new(big.Float).SetInt(wei)
	divisor := new(big.Float).SetInt(big.NewInt(1e18))
	units.Quo(units, divisor)

	return fmt.Sprintf("%.6f", units)
}
