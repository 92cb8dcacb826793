package profile

import (
	"time"

	"github.com/openquant/quorum/pkg/registry"
)

// DefaultProfiles returns the stock analyst roster. Every analyst denies
// execute-trade: analysis and execution are separated by capability, not
// by convention.
func DefaultProfiles() []Profile {
	noTrading := []registry.Capability{registry.CapabilityExecuteTrade}
	return []Profile{
		{
			Name:        "news-analyst",
			Description: "Collects market news and reference data, scores headline sentiment.",
			SystemPrompt: "You are a news analyst. Collect current market news and price context, " +
				"then report sentiment, confidence, and the factors behind it.",
			AllowedToolPatterns: []string{"polygon_*", "binance_get_ticker", "binance_get_price"},
			DeniedCapabilities:  noTrading,
			MaxDuration:         2 * time.Minute,
		},
		{
			Name:        "market-intelligence",
			Description: "Researches broader market narratives and crowd positioning extremes.",
			SystemPrompt: "You are a market intelligence analyst. Research current narratives and " +
				"detect FOMO or FUD extremes, then report sentiment with confidence.",
			AllowedToolPatterns: []string{"perplexity_*", "binance_get_*", "binance_portfolio_performance"},
			DeniedCapabilities:  noTrading,
			MaxDuration:         3 * time.Minute,
		},
		{
			Name:        "technical-analyst",
			Description: "Multi-timeframe chart analysis without fundamental bias.",
			SystemPrompt: "You are a technical analyst. Use indicator and order book data to assess " +
				"the chart, then report sentiment, confidence, and key levels as factors.",
			AllowedToolPatterns: []string{"polygon_crypto_*", "binance_get_*", "py_eval"},
			DeniedCapabilities:  noTrading,
			MaxDuration:         2 * time.Minute,
		},
		{
			Name:        "risk-manager",
			Description: "Portfolio risk assessment; read-only, never executes trades.",
			SystemPrompt: "You are a risk manager. Review account state, open orders, and recent " +
				"history; report sentiment reflecting portfolio risk with your confidence.",
			AllowedToolPatterns: []string{"binance_get_*", "binance_spot_trade_history", "binance_calculate_spot_pnl", "binance_portfolio_performance", "py_eval"},
			DeniedCapabilities:  noTrading,
			MaxDuration:         90 * time.Second,
		},
		{
			Name:        "data-analyst",
			Description: "Quantitative analysis of collected market data.",
			SystemPrompt: "You are a data analyst. Run rigorous quantitative analysis over the " +
				"available data and report sentiment with statistical backing as factors.",
			AllowedToolPatterns: []string{"binance_get_historical_klines", "binance_portfolio_performance", "py_eval", "execute_code"},
			DeniedCapabilities:  noTrading,
			MaxDuration:         2 * time.Minute,
		},
		{
			Name:        "futures-analyst",
			Description: "Funding, open interest, and basis analysis; recommendations only.",
			SystemPrompt: "You are a futures analyst. Analyze funding rates, open interest, and " +
				"basis spreads; report sentiment and confidence, never execute.",
			AllowedToolPatterns: []string{"binance_get_futures_*", "binance_get_ticker", "binance_get_orderbook", "polygon_crypto_*", "py_eval"},
			DeniedCapabilities:  noTrading,
			MaxDuration:         2 * time.Minute,
		},
	}
}
