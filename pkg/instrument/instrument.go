package instrument

import (
	"fmt"
	"strings"
)

// Asset is an opaque symbol identifier, e.g. "BTC" or "USD".
type Asset string

const (
	BTC Asset = "BTC"
	ETH Asset = "ETH"
	USD Asset = "USD"
)

// Pair is an ordered (base, quote) tuple with canonical code "BASE-QUOTE".
type Pair struct {
	Base  Asset
	Quote Asset
}

// Code returns the canonical textual form, e.g. "BTC-USD".
func (p Pair) Code() string {
	return string(p.Base) + "-" + string(p.Quote)
}

func (p Pair) String() string { return p.Code() }

// CryptoUSD builds a crypto/USD spot pair.
func CryptoUSD(base Asset) Pair {
	return Pair{Base: base, Quote: USD}
}

var (
	BTCUSD = CryptoUSD(BTC)
	ETHUSD = CryptoUSD(ETH)
)

// supported is the fixed allow-list of tradable pairs, known at startup.
var supported = []Pair{BTCUSD, ETHUSD}

// Supported returns the allow-list of recognized pairs.
func Supported() []Pair {
	out := make([]Pair, len(supported))
	copy(out, supported)
	return out
}

// SupportedCodes returns the allow-list as canonical codes.
func SupportedCodes() []string {
	codes := make([]string, len(supported))
	for i, p := range supported {
		codes[i] = p.Code()
	}
	return codes
}

// UnsupportedSymbolError is returned when a symbol is not in the allow-list.
// It carries the allow-list so callers can surface it to clients.
type UnsupportedSymbolError struct {
	Symbol    string
	Supported []string
}

func (e *UnsupportedSymbolError) Error() string {
	return fmt.Sprintf("unsupported symbol %q (supported: %s)", e.Symbol, strings.Join(e.Supported, ", "))
}

// Parse resolves a canonical code like "BTC-USD" against the allow-list.
func Parse(symbol string) (Pair, error) {
	for _, p := range supported {
		if p.Code() == symbol {
			return p, nil
		}
	}
	return Pair{}, &UnsupportedSymbolError{Symbol: symbol, Supported: SupportedCodes()}
}
