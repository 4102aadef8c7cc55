// Package maker runs a two-sided quoting bot against the engine's public
// API. It follows the book over the WebSocket feed, computes the mid-price
// from each snapshot, and re-quotes a one-lot bid and ask around the mid
// whenever it moves, cancelling its previous quotes first.
package maker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aodr3w/order-book-engine/pkg/api"
	"github.com/aodr3w/order-book-engine/pkg/book"
	"github.com/aodr3w/order-book-engine/pkg/broadcast"
	"github.com/aodr3w/order-book-engine/pkg/core"
	"github.com/aodr3w/order-book-engine/pkg/instrument"
)

type Config struct {
	APIBase string // e.g. "http://127.0.0.1:8080"
	Pair    instrument.Pair
	Spread  uint64        // quote distance from mid
	Pace    time.Duration // time between quote refreshes
}

// wsFrame mirrors the broadcast frame shape with a raw payload so we only
// decode the snapshots we care about.
type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Run quotes until the context is cancelled.
func Run(ctx context.Context, cfg Config, log *zap.SugaredLogger) error {
	wsURL := "ws" + strings.TrimPrefix(cfg.APIBase, "http") + "/ws/" + cfg.Pair.Code()

	conn, err := dialWithRetry(ctx, wsURL, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	// mid is 0 until the first two-sided snapshot arrives.
	var mid atomic.Uint64
	go watchMid(conn, cfg.Pair, &mid, log)

	client := &http.Client{Timeout: 5 * time.Second}
	var outstanding []core.ID
	var lastMid uint64

	ticker := time.NewTicker(cfg.Pace)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infow("maker_shutdown", "pair", cfg.Pair.Code())
			return nil
		case <-ticker.C:
		}

		m := mid.Load()
		if m == 0 || m == lastMid {
			continue
		}

		// Market moved: pull stale quotes, post fresh ones around the mid.
		for _, id := range outstanding {
			cancelQuote(ctx, client, cfg, id)
		}
		outstanding = outstanding[:0]

		bid := m - min(cfg.Spread, m-1)
		ask := m + cfg.Spread
		for _, quote := range []struct {
			side  core.Side
			price uint64
		}{{core.Buy, bid}, {core.Sell, ask}} {
			id, err := postQuote(ctx, client, cfg, quote.side, quote.price)
			if err != nil {
				log.Warnw("maker_quote_failed", "side", quote.side.String(), "price", quote.price, "err", err)
				continue
			}
			outstanding = append(outstanding, id)
		}
		log.Infow("maker_quoted", "pair", cfg.Pair.Code(), "mid", m, "bid", bid, "ask", ask)
		lastMid = m
	}
}

func dialWithRetry(ctx context.Context, wsURL string, log *zap.SugaredLogger) (*websocket.Conn, error) {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			log.Infow("maker_ws_connected", "url", wsURL)
			return conn, nil
		}
		log.Warnw("maker_ws_connect_failed", "url", wsURL, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// watchMid publishes the latest mid-price from each two-sided snapshot.
func watchMid(conn *websocket.Conn, pair instrument.Pair, mid *atomic.Uint64, log *zap.SugaredLogger) {
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != broadcast.TypeBookSnapshot {
			continue
		}
		var snap book.Snapshot
		if err := json.Unmarshal(frame.Data, &snap); err != nil {
			log.Warnw("maker_bad_frame", "err", err)
			continue
		}
		if snap.Pair != pair.Code() || len(snap.Bids) == 0 || len(snap.Asks) == 0 {
			continue
		}
		mid.Store((uint64(snap.Bids[0].Price) + uint64(snap.Asks[0].Price)) / 2)
	}
}

func postQuote(ctx context.Context, client *http.Client, cfg Config, side core.Side, price uint64) (core.ID, error) {
	p := core.Price(price)
	body, err := json.Marshal(api.NewOrder{
		Side:      side,
		OrderType: core.Limit,
		Price:     &p,
		Quantity:  1,
		Symbol:    cfg.Pair.Code(),
	})
	if err != nil {
		return core.ID{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIBase+"/orders", bytes.NewReader(body))
	if err != nil {
		return core.ID{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return core.ID{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.ID{}, fmt.Errorf("order post: %s", resp.Status)
	}

	var ack api.OrderAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return core.ID{}, err
	}
	return ack.OrderID, nil
}

func cancelQuote(ctx context.Context, client *http.Client, cfg Config, id core.ID) {
	url := fmt.Sprintf("%s/orders/%s/%s", cfg.APIBase, cfg.Pair.Code(), id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return
	}
	// A 404 just means the quote already filled; nothing to do either way.
	if resp, err := client.Do(req); err == nil {
		resp.Body.Close()
	}
}
