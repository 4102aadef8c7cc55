package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSideJSON(t *testing.T) {
	for _, tc := range []struct {
		side Side
		want string
	}{
		{Buy, `"Buy"`},
		{Sell, `"Sell"`},
	} {
		data, err := json.Marshal(tc.side)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != tc.want {
			t.Errorf("expected %s, got %s", tc.want, data)
		}
		var back Side
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if back != tc.side {
			t.Errorf("round trip mismatch for %s", tc.want)
		}
	}

	var s Side
	if err := json.Unmarshal([]byte(`"buy"`), &s); err == nil {
		t.Error("lowercase side must be rejected")
	}
	if err := json.Unmarshal([]byte(`0`), &s); err == nil {
		t.Error("numeric side must be rejected")
	}
}

func TestKindJSON(t *testing.T) {
	for _, tc := range []struct {
		kind Kind
		want string
	}{
		{Limit, `"Limit"`},
		{Market, `"Market"`},
	} {
		data, err := json.Marshal(tc.kind)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != tc.want {
			t.Errorf("expected %s, got %s", tc.want, data)
		}
		var back Kind
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if back != tc.kind {
			t.Errorf("round trip mismatch for %s", tc.want)
		}
	}

	var k Kind
	if err := json.Unmarshal([]byte(`"Stop"`), &k); err == nil {
		t.Error("unknown order type must be rejected")
	}
}

func TestTradeJSONFieldNames(t *testing.T) {
	tr := Trade{Price: 52, Quantity: 4, MakerID: NewID(), TakerID: NewID(), Timestamp: 123, Symbol: "BTC-USD"}
	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"price", "quantity", "maker_id", "taker_id", "timestamp", "symbol"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing field %q in %s", field, data)
		}
	}
}

func TestMicros(t *testing.T) {
	at := time.Unix(1_700_000_000, 123_456_789)
	if got := Micros(at); got != 1_700_000_000_123_456 {
		t.Errorf("expected microsecond precision, got %d", got)
	}
}
