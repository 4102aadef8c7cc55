package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aodr3w/order-book-engine/pkg/book"
	"github.com/aodr3w/order-book-engine/pkg/broadcast"
	"github.com/aodr3w/order-book-engine/pkg/core"
	"github.com/aodr3w/order-book-engine/pkg/exchange"
	"github.com/aodr3w/order-book-engine/pkg/store"
	"github.com/aodr3w/order-book-engine/pkg/util"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.OpenPebble(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	app := exchange.New(st, 64, util.RealClock{}, zap.NewNop().Sugar())
	srv := httptest.NewServer(NewServer(app, zap.NewNop().Sugar()).Handler())
	t.Cleanup(func() {
		srv.Close()
		app.Close()
	})
	return srv
}

func postOrder(t *testing.T, srv *httptest.Server, order NewOrder) (*http.Response, OrderAck) {
	t.Helper()
	body, err := json.Marshal(order)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var ack OrderAck
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			t.Fatal(err)
		}
	}
	return resp, ack
}

func limitNewOrder(side core.Side, price core.Price, qty core.Quantity) NewOrder {
	return NewOrder{Side: side, OrderType: core.Limit, Price: &price, Quantity: qty, Symbol: "BTC-USD"}
}

func decodeErrorBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["error"]; !ok {
		t.Fatalf("error body missing error field: %v", body)
	}
	return body
}

func TestCreateOrderAndBook(t *testing.T) {
	srv := newTestServer(t)

	resp, ack := postOrder(t, srv, limitNewOrder(core.Sell, 52, 10))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ack.OrderID.IsZero() {
		t.Error("ack must carry the assigned order id")
	}
	if len(ack.Trades) != 0 {
		t.Errorf("no fills expected on empty book, got %d", len(ack.Trades))
	}

	bookResp, err := http.Get(srv.URL + "/book/BTC-USD")
	if err != nil {
		t.Fatal(err)
	}
	defer bookResp.Body.Close()
	var snap book.Snapshot
	if err := json.NewDecoder(bookResp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Pair != "BTC-USD" {
		t.Errorf("expected pair BTC-USD, got %s", snap.Pair)
	}
	if len(snap.Asks) != 1 || snap.Asks[0].Price != 52 || snap.Asks[0].Qty != 10 {
		t.Errorf("expected ask 10@52, got %+v", snap.Asks)
	}
}

func TestCreateOrderMatches(t *testing.T) {
	srv := newTestServer(t)
	postOrder(t, srv, limitNewOrder(core.Sell, 52, 10))

	resp, ack := postOrder(t, srv, limitNewOrder(core.Buy, 52, 4))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(ack.Trades) != 1 || ack.Trades[0].Price != 52 || ack.Trades[0].Quantity != 4 {
		t.Fatalf("expected fill 4@52, got %+v", ack.Trades)
	}
}

func TestCreateOrderRejections(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unsupported symbol", func(t *testing.T) {
		price := core.Price(50)
		resp, _ := postOrder(t, srv, NewOrder{Side: core.Buy, OrderType: core.Limit, Price: &price, Quantity: 1, Symbol: "DOGE-USD"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		body := decodeErrorBody(t, resp)
		supported, ok := body["supported"].([]interface{})
		if !ok || len(supported) == 0 {
			t.Errorf("rejection must list supported symbols, got %v", body)
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		resp, _ := postOrder(t, srv, limitNewOrder(core.Buy, 50, 0))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		decodeErrorBody(t, resp)
	})

	t.Run("limit without price", func(t *testing.T) {
		resp, _ := postOrder(t, srv, NewOrder{Side: core.Buy, OrderType: core.Limit, Quantity: 1, Symbol: "BTC-USD"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader("{not json"))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	_, ack := postOrder(t, srv, limitNewOrder(core.Buy, 48, 10))

	del := func(pair, id string) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/orders/%s/%s", srv.URL, pair, id), nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	if resp := del("BTC-USD", ack.OrderID.String()); resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}
	if resp := del("BTC-USD", ack.OrderID.String()); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("repeat cancel: expected 404, got %d", resp.StatusCode)
	}
	if resp := del("BTC-USD", core.NewID().String()); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", resp.StatusCode)
	}
	if resp := del("BTC-USD", "not-a-number"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", resp.StatusCode)
	}
	if resp := del("DOGE-USD", ack.OrderID.String()); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad pair: expected 400, got %d", resp.StatusCode)
	}
}

func TestGetTrades(t *testing.T) {
	srv := newTestServer(t)

	postOrder(t, srv, limitNewOrder(core.Sell, 52, 3))
	for i := 0; i < 3; i++ {
		postOrder(t, srv, NewOrder{Side: core.Buy, OrderType: core.Market, Quantity: 1, Symbol: "BTC-USD"})
	}

	get := func(query string) (*http.Response, map[string]json.RawMessage) {
		resp, err := http.Get(srv.URL + "/trades/BTC-USD" + query)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		var body map[string]json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		return resp, body
	}

	resp, body := get("?limit=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("x-effective-limit") != "2" {
		t.Errorf("expected x-effective-limit 2, got %q", resp.Header.Get("x-effective-limit"))
	}
	var items []core.Trade
	if err := json.Unmarshal(body["items"], &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(items))
	}
	var next string
	if err := json.Unmarshal(body["next"], &next); err != nil || next == "" {
		t.Fatalf("expected next cursor, got %s", body["next"])
	}

	resp, body = get("?limit=2&after=" + next)
	if err := json.Unmarshal(body["items"], &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected final page of 1, got %d", len(items))
	}
	if string(body["next"]) != "null" {
		t.Errorf("last page must have null next, got %s", body["next"])
	}
}

func TestGetTradesValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		query string
		want  int
	}{
		{"?limit=0", http.StatusBadRequest},
		{"?limit=abc", http.StatusBadRequest},
		{"?after=garbage!!", http.StatusBadRequest},
		{"", http.StatusOK},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + "/trades/BTC-USD" + tc.query)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("query %q: expected %d, got %d", tc.query, tc.want, resp.StatusCode)
		}
	}

	// Over-cap limits are clamped and the applied value is reported.
	resp, err := http.Get(srv.URL + "/trades/BTC-USD?limit=5000")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("x-effective-limit"); got != "1000" {
		t.Errorf("expected x-effective-limit 1000, got %q", got)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWebSocketStream(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/BTC-USD"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	readFrame := func() (string, json.RawMessage) {
		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatal(err)
		}
		return frame.Type, frame.Data
	}

	// First frame is the seed snapshot of the (empty) book.
	typ, data := readFrame()
	if typ != broadcast.TypeBookSnapshot {
		t.Fatalf("expected seed snapshot, got %s", typ)
	}
	var snap book.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Errorf("seed snapshot of fresh book must be empty, got %+v", snap)
	}

	// A resting order produces a snapshot frame.
	postOrder(t, srv, limitNewOrder(core.Sell, 52, 10))
	typ, _ = readFrame()
	if typ != broadcast.TypeBookSnapshot {
		t.Fatalf("expected snapshot after resting order, got %s", typ)
	}

	// A match produces a trade frame, then the post-state snapshot.
	postOrder(t, srv, limitNewOrder(core.Buy, 52, 4))
	typ, data = readFrame()
	if typ != broadcast.TypeTrade {
		t.Fatalf("expected trade frame, got %s", typ)
	}
	var tr core.Trade
	if err := json.Unmarshal(data, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Price != 52 || tr.Quantity != 4 || tr.Symbol != "BTC-USD" {
		t.Errorf("expected fill 4@52 on BTC-USD, got %+v", tr)
	}
	typ, data = readFrame()
	if typ != broadcast.TypeBookSnapshot {
		t.Fatalf("expected post-trade snapshot, got %s", typ)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Asks) != 1 || snap.Asks[0].Qty != 6 {
		t.Errorf("post-trade snapshot should show 6@52 remaining, got %+v", snap)
	}
}

func TestWebSocketUnsupportedPair(t *testing.T) {
	srv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/DOGE-USD"
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("dial of unsupported pair must fail the upgrade")
	}
}
