package params

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.API.SubscriberBuffer < 1 {
		t.Error("subscriber buffer must be positive")
	}
	if cfg.Store.Path == "" || cfg.Log.File == "" {
		t.Error("store and log paths must have defaults")
	}
	if cfg.Maker.Pace <= 0 {
		t.Error("maker pace must be positive")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STORE_PATH", "/tmp/trades-test")
	t.Setenv("SUBSCRIBER_BUFFER", "32")
	t.Setenv("MAKER_PACE_MS", "250")
	t.Setenv("SIM_RATE_HZ", "10")

	cfg := LoadFromEnv("")
	if cfg.Store.Path != "/tmp/trades-test" {
		t.Errorf("STORE_PATH not applied: %s", cfg.Store.Path)
	}
	if cfg.API.SubscriberBuffer != 32 {
		t.Errorf("SUBSCRIBER_BUFFER not applied: %d", cfg.API.SubscriberBuffer)
	}
	if cfg.Maker.Pace != 250*time.Millisecond {
		t.Errorf("MAKER_PACE_MS not applied: %s", cfg.Maker.Pace)
	}
	if cfg.Sim.RateHz != 10 {
		t.Errorf("SIM_RATE_HZ not applied: %f", cfg.Sim.RateHz)
	}
}

func TestBadEnvValuesFallBack(t *testing.T) {
	t.Setenv("SUBSCRIBER_BUFFER", "zero")
	t.Setenv("SIM_RATE_HZ", "-3")

	cfg := LoadFromEnv("")
	def := Default()
	if cfg.API.SubscriberBuffer != def.API.SubscriberBuffer {
		t.Error("unparseable buffer must keep the default")
	}
	if cfg.Sim.RateHz != def.Sim.RateHz {
		t.Error("non-positive rate must keep the default")
	}
}
