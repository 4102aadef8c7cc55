package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aodr3w/order-book-engine/params"
	"github.com/aodr3w/order-book-engine/pkg/api"
	"github.com/aodr3w/order-book-engine/pkg/exchange"
	"github.com/aodr3w/order-book-engine/pkg/instrument"
	"github.com/aodr3w/order-book-engine/pkg/maker"
	"github.com/aodr3w/order-book-engine/pkg/sim"
	"github.com/aodr3w/order-book-engine/pkg/store"
	"github.com/aodr3w/order-book-engine/pkg/util"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s serve <port> | simulate <port> [seconds]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}
	command := os.Args[1]
	port, err := strconv.Atoi(os.Args[2])
	if err != nil || port < 1 || port > 65535 {
		usage()
	}

	// Load config from .env file and environment variables.
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	st, err := store.OpenPebble(cfg.Store.Path)
	if err != nil {
		sugar.Fatalw("trade_store_open_failed", "path", cfg.Store.Path, "err", err)
	}

	app := exchange.New(st, cfg.API.SubscriberBuffer, util.RealClock{}, sugar)
	server := api.NewServer(app, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}
	go func() {
		sugar.Infow("server_listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server_failed", "err", err)
		}
	}()

	switch command {
	case "serve":
		<-ctx.Done()

	case "simulate":
		var runFor time.Duration
		if len(os.Args) > 3 {
			secs, err := strconv.Atoi(os.Args[3])
			if err != nil || secs < 0 {
				usage()
			}
			runFor = time.Duration(secs) * time.Second
		}
		runSimulation(ctx, cfg, port, runFor, sugar)

	default:
		usage()
	}

	// Drain in-flight requests, then flush the trade store.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("server_shutdown", "err", err)
	}
	if err := app.Close(); err != nil {
		sugar.Errorw("trade_store_close_failed", "err", err)
	}
	sugar.Info("shutdown_complete")
}

func runSimulation(ctx context.Context, cfg params.Config, port int, runFor time.Duration, sugar *zap.SugaredLogger) {
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	pair := instrument.BTCUSD

	if err := waitForServer(ctx, base, pair); err != nil {
		sugar.Fatalw("server_not_ready", "err", err)
	}
	if err := seedBook(base, pair); err != nil {
		sugar.Fatalw("seed_failed", "err", err)
	}

	simCtx := ctx
	if runFor > 0 {
		var cancel context.CancelFunc
		simCtx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	makerDone := make(chan struct{})
	go func() {
		defer close(makerDone)
		if err := maker.Run(simCtx, maker.Config{
			APIBase: base,
			Pair:    pair,
			Spread:  cfg.Maker.Spread,
			Pace:    cfg.Maker.Pace,
		}, sugar); err != nil {
			sugar.Errorw("maker_exited", "err", err)
		}
	}()

	if err := sim.Run(simCtx, sim.Config{
		APIBase:    base,
		Pair:       pair,
		RunFor:     runFor,
		RateHz:     cfg.Sim.RateHz,
		NoiseSigma: cfg.Sim.NoiseSigma,
		MeanQty:    cfg.Sim.MeanQty,
	}, sugar); err != nil {
		sugar.Errorw("sim_exited", "err", err)
	}
	<-makerDone
}

func waitForServer(ctx context.Context, base string, pair instrument.Pair) error {
	url := fmt.Sprintf("%s/book/%s", base, pair.Code())
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// seedBook rests a bid at 48 and an ask at 52 so the maker has a mid to
// quote around.
func seedBook(base string, pair instrument.Pair) error {
	for _, seed := range []struct {
		side  string
		price uint64
	}{{"Buy", 48}, {"Sell", 52}} {
		body, _ := json.Marshal(map[string]interface{}{
			"side":       seed.side,
			"order_type": "Limit",
			"price":      seed.price,
			"quantity":   10,
			"symbol":     pair.Code(),
		})
		resp, err := http.Post(base+"/orders", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("seed order: %s", resp.Status)
		}
	}
	return nil
}
