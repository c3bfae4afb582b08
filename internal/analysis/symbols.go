package analysis

import "MarketPsyche/internal/model"

var supportedSymbols = map[model.MarketKind][]string{
	model.MarketCrypto: {
		"BTC/USDT", "ETH/USDT", "BNB/USDT", "XRP/USDT", "ADA/USDT",
		"SOL/USDT", "DOGE/USDT", "DOT/USDT", "AVAX/USDT", "SHIB/USDT",
		"MATIC/USDT", "LTC/USDT", "BCH/USDT", "LINK/USDT", "UNI/USDT",
		"ATOM/USDT", "ETC/USDT", "XLM/USDT", "VET/USDT", "FIL/USDT",
	},
	model.MarketStock: {
		"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "NFLX",
		"BABA", "V", "JPM", "JNJ", "WMT", "PG", "UNH", "HD", "MA",
		"DIS", "PYPL", "ADBE", "CRM", "INTC", "CSCO", "PFE", "KO",
	},
}

// DefaultSymbolLimit caps SupportedSymbols when limit is not positive.
const DefaultSymbolLimit = 50

// SupportedSymbols lists well-known instruments of a market kind, at most limit of them.
// An unknown kind yields an empty list.
func SupportedSymbols(kind model.MarketKind, limit int) []string {
	if limit <= 0 {
		limit = DefaultSymbolLimit
	}
	all := supportedSymbols[kind]
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]string, limit)
	copy(out, all[:limit])
	return out
}
