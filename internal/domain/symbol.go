// Package domain defines the core data structures of the trading engine.
package domain

import "fmt"

// Symbol is an exchange ticker on the NSE.
type Symbol string

// String returns the string representation.
func (s Symbol) String() string {
	return string(s)
}

// Universe is a fixed ordered set of symbols the strategy screens.
type Universe []Symbol

// NewUniverse builds a validated universe. Order is preserved, duplicates are
// rejected.
func NewUniverse(symbols []string) (Universe, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe must not be empty")
	}

	seen := make(map[string]struct{}, len(symbols))
	universe := make(Universe, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("universe contains an empty symbol")
		}
		if _, ok := seen[s]; ok {
			return nil, fmt.Errorf("duplicate symbol %s in universe", s)
		}
		seen[s] = struct{}{}
		universe = append(universe, Symbol(s))
	}

	return universe, nil
}

// Contains reports whether the universe holds the given symbol.
func (u Universe) Contains(symbol Symbol) bool {
	for _, s := range u {
		if s == symbol {
			return true
		}
	}
	return false
}

// NiftyFifty is the default screening universe (Nifty 50 constituents).
var NiftyFifty = []string{
	"ADANIENT", "ADANIPORTS", "APOLLOHOSP", "ASIANPAINT", "AXISBANK",
	"BAJAJ-AUTO", "BAJFINANCE", "BAJAJFINSV", "BEL", "BHARTIARTL",
	"CIPLA", "COALINDIA", "DRREDDY", "EICHERMOT", "ETERNAL",
	"GRASIM", "HCLTECH", "HDFCBANK", "HDFCLIFE", "HEROMOTOCO",
	"HINDALCO", "HINDUNILVR", "ICICIBANK", "ITC", "INDUSINDBK",
	"INFY", "JSWSTEEL", "JIOFIN", "KOTAKBANK", "LT",
	"M&M", "MARUTI", "NTPC", "NESTLEIND", "ONGC",
	"POWERGRID", "RELIANCE", "SBILIFE", "SHRIRAMFIN", "SBIN",
	"SUNPHARMA", "TCS", "TATACONSUM", "TATAMOTORS", "TATASTEEL",
	"TECHM", "TITAN", "TRENT", "ULTRACEMCO", "WIPRO",
}
