// Package sim generates noisy order flow against the engine's public API:
// Poisson arrivals, Gaussian mid drift, exponentially distributed sizes,
// and an occasional market order sweeping the touch.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aodr3w/order-book-engine/pkg/api"
	"github.com/aodr3w/order-book-engine/pkg/core"
	"github.com/aodr3w/order-book-engine/pkg/instrument"
)

type Config struct {
	APIBase    string
	Pair       instrument.Pair
	RunFor     time.Duration // 0 = run until cancelled
	RateHz     float64       // Poisson arrival rate
	NoiseSigma float64       // N(0, sigma) mid drift per tick
	MeanQty    float64       // mean order size
}

const (
	quoteSpread     = 1.0
	marketOrderProb = 0.2
)

// Run submits random orders until the context is cancelled or RunFor
// elapses, tracking the simulated trader's inventory and P&L.
func Run(ctx context.Context, cfg Config, log *zap.SugaredLogger) error {
	client := &http.Client{Timeout: 5 * time.Second}

	var (
		inventory int64
		pnl       float64
	)
	mid := 50.0
	start := time.Now()

	for {
		if cfg.RunFor > 0 && time.Since(start) >= cfg.RunFor {
			break
		}

		// Exponential inter-arrival at RateHz.
		wait := time.Duration(rand.ExpFloat64() / cfg.RateHz * float64(time.Second))
		select {
		case <-ctx.Done():
			log.Infow("sim_shutdown", "inventory", inventory, "pnl", fmt.Sprintf("%.2f", pnl))
			return nil
		case <-time.After(wait):
		}

		mid += rand.NormFloat64() * cfg.NoiseSigma
		qty := core.Quantity(math.Max(1, math.Round(rand.ExpFloat64()*cfg.MeanQty)))

		side := core.Buy
		price := mid - quoteSpread
		if rand.Float64() < 0.5 {
			side = core.Sell
			price = mid + quoteSpread
		}

		order := api.NewOrder{
			Side:      side,
			OrderType: core.Limit,
			Quantity:  qty,
			Symbol:    cfg.Pair.Code(),
		}
		if rand.Float64() < marketOrderProb {
			order.OrderType = core.Market
			order.Quantity = 1
		} else {
			p := core.Price(uint64(math.Max(1, math.Round(price))))
			order.Price = &p
		}

		ack, err := submit(ctx, client, cfg.APIBase, order)
		if err != nil {
			log.Warnw("sim_order_failed", "err", err)
			continue
		}

		for _, t := range ack.Trades {
			px, q := float64(t.Price), float64(t.Quantity)
			if side == core.Buy {
				inventory -= int64(t.Quantity)
				pnl += px * q
			} else {
				inventory += int64(t.Quantity)
				pnl -= px * q
			}
		}

		log.Infow("sim_tick",
			"elapsed", fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
			"side", side.String(),
			"kind", order.OrderType.String(),
			"qty", order.Quantity,
			"mid", fmt.Sprintf("%.2f", mid),
			"fills", len(ack.Trades),
			"inventory", inventory,
			"pnl", fmt.Sprintf("%.2f", pnl))
	}

	log.Infow("sim_done", "inventory", inventory, "pnl", fmt.Sprintf("%.2f", pnl))
	return nil
}

func submit(ctx context.Context, client *http.Client, apiBase string, order api.NewOrder) (api.OrderAck, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return api.OrderAck{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/orders", bytes.NewReader(body))
	if err != nil {
		return api.OrderAck{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return api.OrderAck{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return api.OrderAck{}, fmt.Errorf("order post: %s", resp.Status)
	}

	var ack api.OrderAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return api.OrderAck{}, err
	}
	return ack, nil
}
