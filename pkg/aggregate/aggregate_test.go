package aggregate

import (
	"math"
	"testing"

	"github.com/openquant/quorum/pkg/core"
)

func success(agent string, sentiment core.Sentiment, confidence float64) core.InvocationOutcome {
	return core.InvocationOutcome{
		RequestID: "req-" + agent,
		AgentName: agent,
		Kind:      core.OutcomeSuccess,
		Result: &core.AgentResult{
			Sentiment:  sentiment,
			Confidence: confidence,
			Summary:    "summary from " + agent,
		},
	}
}

func failure(agent string, kind core.OutcomeKind) core.InvocationOutcome {
	return core.InvocationOutcome{
		RequestID: "req-" + agent,
		AgentName: agent,
		Kind:      kind,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateWeightedMajority(t *testing.T) {
	signal := Aggregate([]core.InvocationOutcome{
		success("technical-analyst", core.SentimentBullish, 0.8),
		success("news-analyst", core.SentimentBullish, 0.6),
		success("risk-manager", core.SentimentBearish, 0.9),
	})

	if signal.Sentiment != core.SentimentBullish {
		t.Fatalf("expected bullish, got %s", signal.Sentiment)
	}
	// 1.4 of 2.3 weighted votes.
	if !approx(signal.Confidence, 1.4/2.3) {
		t.Fatalf("expected confidence %.4f, got %.4f", 1.4/2.3, signal.Confidence)
	}
	if len(signal.Contributions) != 3 {
		t.Fatalf("expected 3 contributions, got %d", len(signal.Contributions))
	}
	if len(signal.Abstentions) != 0 {
		t.Fatalf("expected no abstentions, got %v", signal.Abstentions)
	}
}

func TestAggregateFailuresAbstainWithReasons(t *testing.T) {
	signal := Aggregate([]core.InvocationOutcome{
		success("technical-analyst", core.SentimentBearish, 0.7),
		failure("news-analyst", core.OutcomeTimeout),
		failure("risk-manager", core.OutcomeExecutorError),
	})

	if signal.Sentiment != core.SentimentBearish {
		t.Fatalf("expected bearish, got %s", signal.Sentiment)
	}
	if !approx(signal.Confidence, 1.0) {
		t.Fatalf("sole voter carries the full weight, got %.4f", signal.Confidence)
	}
	if len(signal.Abstentions) != 2 {
		t.Fatalf("expected 2 abstentions, got %d", len(signal.Abstentions))
	}
	for _, abstention := range signal.Abstentions {
		if abstention.Reason == "" {
			t.Fatalf("abstention for %s has no reason", abstention.AgentName)
		}
	}
}

func TestAggregateAllFailuresIsNeutralZero(t *testing.T) {
	signal := Aggregate([]core.InvocationOutcome{
		failure("technical-analyst", core.OutcomeTimeout),
		failure("news-analyst", core.OutcomePolicyViolation),
	})

	if signal.Sentiment != core.SentimentNeutral {
		t.Fatalf("expected neutral, got %s", signal.Sentiment)
	}
	if signal.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %.4f", signal.Confidence)
	}
	if len(signal.Contributions) != 0 {
		t.Fatal("no contributions expected")
	}
}

func TestAggregateTieBreak(t *testing.T) {
	cases := []struct {
		name     string
		outcomes []core.InvocationOutcome
		want     core.Sentiment
	}{
		{
			name: "neutral beats bearish",
			outcomes: []core.InvocationOutcome{
				success("a", core.SentimentNeutral, 0.5),
				success("b", core.SentimentBearish, 0.5),
			},
			want: core.SentimentNeutral,
		},
		{
			name: "bearish beats bullish",
			outcomes: []core.InvocationOutcome{
				success("a", core.SentimentBearish, 0.5),
				success("b", core.SentimentBullish, 0.5),
			},
			want: core.SentimentBearish,
		},
		{
			name: "neutral beats both",
			outcomes: []core.InvocationOutcome{
				success("a", core.SentimentNeutral, 0.4),
				success("b", core.SentimentBearish, 0.4),
				success("c", core.SentimentBullish, 0.4),
			},
			want: core.SentimentNeutral,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signal := Aggregate(tc.outcomes)
			if signal.Sentiment != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, signal.Sentiment)
			}
		})
	}
}

func TestAggregateZeroConfidenceVotes(t *testing.T) {
	signal := Aggregate([]core.InvocationOutcome{
		success("a", core.SentimentBullish, 0),
	})
	if signal.Sentiment != core.SentimentNeutral || signal.Confidence != 0 {
		t.Fatalf("zero-weight votes decide nothing, got %s/%.2f", signal.Sentiment, signal.Confidence)
	}
	if len(signal.Contributions) != 1 {
		t.Fatal("the vote is still recorded as a contribution")
	}
}

func TestAggregateEmptyBatch(t *testing.T) {
	signal := Aggregate(nil)
	if signal.Sentiment != core.SentimentNeutral || signal.Confidence != 0 {
		t.Fatalf("empty input must yield neutral/0, got %s/%.2f", signal.Sentiment, signal.Confidence)
	}
}
