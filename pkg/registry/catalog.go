package registry

// Default returns the built-in tool catalog covering the market-data,
// account, trading, research, and compute surfaces the stock agent roster
// is written against. Deployments with their own MCP servers supply a
// catalog through the profile definitions file instead.
func Default() *Registry {
	reg, err := New(DefaultCatalog())
	if err != nil {
		// The built-in catalog only uses known capability tags.
		panic(err)
	}
	return reg
}

// DefaultCatalog returns the built-in tool-to-capability mapping.
func DefaultCatalog() map[string]Capability {
	return map[string]Capability{
		// Market data: news, reference, prices, indicators.
		"polygon_news":                   CapabilityReadMarketData,
		"polygon_market_status":          CapabilityReadMarketData,
		"polygon_crypto_last_trade":      CapabilityReadMarketData,
		"polygon_crypto_snapshot_ticker": CapabilityReadMarketData,
		"polygon_crypto_snapshot_book":   CapabilityReadMarketData,
		"polygon_crypto_gainers_losers":  CapabilityReadMarketData,
		"polygon_crypto_aggregates":      CapabilityReadMarketData,
		"polygon_crypto_previous_close":  CapabilityReadMarketData,
		"polygon_crypto_rsi":             CapabilityReadMarketData,
		"polygon_crypto_ema":             CapabilityReadMarketData,
		"polygon_crypto_macd":            CapabilityReadMarketData,
		"polygon_crypto_sma":             CapabilityReadMarketData,
		"binance_get_ticker":             CapabilityReadMarketData,
		"binance_get_price":              CapabilityReadMarketData,
		"binance_get_orderbook":          CapabilityReadMarketData,
		"binance_get_recent_trades":      CapabilityReadMarketData,
		"binance_get_historical_klines":  CapabilityReadMarketData,

		// Account state and history.
		"binance_get_account":             CapabilityReadAccount,
		"binance_get_open_orders":         CapabilityReadAccount,
		"binance_spot_trade_history":      CapabilityReadAccount,
		"binance_portfolio_performance":   CapabilityReadAccount,
		"binance_calculate_spot_pnl":      CapabilityReadAccount,
		"binance_get_futures_balances":    CapabilityReadAccount,
		"binance_get_futures_open_orders": CapabilityReadAccount,

		// Order placement and management.
		"binance_spot_market_order":    CapabilityExecuteTrade,
		"binance_spot_limit_order":     CapabilityExecuteTrade,
		"binance_spot_oco_order":       CapabilityExecuteTrade,
		"binance_cancel_order":         CapabilityExecuteTrade,
		"binance_trade_futures_market": CapabilityExecuteTrade,
		"binance_futures_limit_order":  CapabilityExecuteTrade,
		"binance_set_futures_leverage": CapabilityExecuteTrade,

		// External research.
		"perplexity_sonar":               CapabilityResearch,
		"perplexity_sonar_pro":           CapabilityResearch,
		"perplexity_sonar_deep_research": CapabilityResearch,

		// Local computation.
		"py_eval":      CapabilityCompute,
		"execute_code": CapabilityCompute,
	}
}
