package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	// SubscriberBuffer is the per-subscriber frame buffer; slow consumers
	// drop the oldest frame once it fills.
	SubscriberBuffer int
}

type Store struct {
	Path string
}

type Log struct {
	File string
}

type Maker struct {
	Spread uint64        // quote distance from mid
	Pace   time.Duration // time between quote refreshes
}

type Sim struct {
	RateHz     float64 // Poisson arrival rate
	NoiseSigma float64 // N(0, sigma) mid drift per tick
	MeanQty    float64 // mean order size (Exp * MeanQty)
}

type Config struct {
	API   API
	Store Store
	Log   Log
	Maker Maker
	Sim   Sim
}

func Default() Config {
	return Config{
		API:   API{SubscriberBuffer: 256},
		Store: Store{Path: "data/trades"},
		Log:   Log{File: "data/engine.log"},
		Maker: Maker{Spread: 2, Pace: 500 * time.Millisecond},
		Sim:   Sim{RateHz: 5, NoiseSigma: 0.5, MeanQty: 3},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if path := os.Getenv("STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Log.File = file
	}
	if buf := os.Getenv("SUBSCRIBER_BUFFER"); buf != "" {
		if n, err := strconv.Atoi(buf); err == nil && n > 0 {
			cfg.API.SubscriberBuffer = n
		}
	}
	if spread := os.Getenv("MAKER_SPREAD"); spread != "" {
		if n, err := strconv.ParseUint(spread, 10, 64); err == nil {
			cfg.Maker.Spread = n
		}
	}
	if pace := os.Getenv("MAKER_PACE_MS"); pace != "" {
		if ms, err := strconv.Atoi(pace); err == nil {
			cfg.Maker.Pace = time.Duration(ms) * time.Millisecond
		}
	}
	if rate := os.Getenv("SIM_RATE_HZ"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil && f > 0 {
			cfg.Sim.RateHz = f
		}
	}
	if sigma := os.Getenv("SIM_NOISE_SIGMA"); sigma != "" {
		if f, err := strconv.ParseFloat(sigma, 64); err == nil && f >= 0 {
			cfg.Sim.NoiseSigma = f
		}
	}
	if qty := os.Getenv("SIM_MEAN_QTY"); qty != "" {
		if f, err := strconv.ParseFloat(qty, 64); err == nil && f > 0 {
			cfg.Sim.MeanQty = f
		}
	}

	return cfg
}
