// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

// Package aggregate folds a batch of invocation outcomes into one
// confidence-weighted composite signal. Aggregation is pure: it never
// fails, and the degenerate all-abstain batch yields a neutral signal
// with zero confidence.
package aggregate

import (
	"sort"

	"github.com/openquant/quorum/pkg/core"
)

// Contribution is one successful agent's vote.
type Contribution struct {
	AgentName  string
	RequestID  string
	Sentiment  core.Sentiment
	Confidence float64
	Summary    string
}

// Abstention records a request that contributed no vote.
type Abstention struct {
	AgentName string
	RequestID string
	Kind      core.OutcomeKind
	Reason    string
}

// CompositeSignal is the aggregated verdict over a batch.
type CompositeSignal struct {
	Sentiment Sentiment
	// Confidence is the winning side's share of total weighted votes,
	// in [0,1]. Zero when no agent voted.
	Confidence    float64
	Contributions []Contribution
	Abstentions   []Abstention
}

// Sentiment aliases the core type so callers reading a signal need only
// this package.
type Sentiment = core.Sentiment

// tieBreakRank orders sentiments for equal-weight ties. Neutral wins over
// the directional calls; between directions, the cautious one wins.
var tieBreakRank = map[core.Sentiment]int{
	core.SentimentNeutral: 0,
	core.SentimentBearish: 1,
	core.SentimentBullish: 2,
}

// Aggregate folds outcomes into a composite signal. Success outcomes vote
// with their confidence as weight; everything else becomes an abstention
// with a human-readable reason.
func Aggregate(outcomes []core.InvocationOutcome) CompositeSignal {
	signal := CompositeSignal{Sentiment: core.SentimentNeutral}
	weights := make(map[core.Sentiment]float64, 3)
	var total float64

	for _, outcome := range outcomes {
		if outcome.Kind != core.OutcomeSuccess || outcome.Result == nil {
			signal.Abstentions = append(signal.Abstentions, Abstention{
				AgentName: outcome.AgentName,
				RequestID: outcome.RequestID,
				Kind:      outcome.Kind,
				Reason:    outcome.AbstentionReason(),
			})
			continue
		}
		result := outcome.Result
		signal.Contributions = append(signal.Contributions, Contribution{
			AgentName:  outcome.AgentName,
			RequestID:  outcome.RequestID,
			Sentiment:  result.Sentiment,
			Confidence: result.Confidence,
			Summary:    result.Summary,
		})
		weights[result.Sentiment] += result.Confidence
		total += result.Confidence
	}

	if total == 0 {
		// No votes at all, or every voter reported zero confidence.
		return signal
	}

	candidates := make([]core.Sentiment, 0, len(weights))
	for sentiment := range weights {
		candidates = append(candidates, sentiment)
	}
	sort.Slice(candidates, func(i, j int) bool {
		wi, wj := weights[candidates[i]], weights[candidates[j]]
		if wi != wj {
			return wi > wj
		}
		return tieBreakRank[candidates[i]] < tieBreakRank[candidates[j]]
	})

	signal.Sentiment = candidates[0]
	signal.Confidence = weights[candidates[0]] / total
	return signal
}
