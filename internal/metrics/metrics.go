// Package metrics exposes engine counters over a Prometheus endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// RoundsTotal counts market evaluation rounds.
	RoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_rounds_total",
		Help: "Market evaluation rounds run.",
	})

	// OpportunitiesTotal counts detected price gaps by direction.
	OpportunitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_opportunities_total",
		Help: "Price gaps wide enough to plan a bundle.",
	}, []string{"direction"})

	// SimulationsTotal counts bundle simulations by phase and result.
	SimulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_simulations_total",
		Help: "Bundle simulations by phase and result.",
	}, []string{"phase", "result"})

	// TradesTotal counts broadcast bundle transactions by result.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_trades_total",
		Help: "Broadcast bundle transactions by mined result.",
	}, []string{"result"})

	// NetProfitWei gauges the last planned net profit in wei.
	NetProfitWei = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_net_profit_wei",
		Help: "Net profit of the most recently planned bundle, in wei.",
	})

	// BalancerPrice gauges the latest company spot price.
	BalancerPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_balancer_price",
		Help: "Latest company spot price in settlement asset units.",
	})

	// IdealPrice gauges the probability-weighted conditional price.
	IdealPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_ideal_price",
		Help: "Probability-weighted conditional company price.",
	})
)

// Serve runs the metrics endpoint until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
