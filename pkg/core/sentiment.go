package core

import (
	"strings"

	"github.com/openquant/quorum/pkg/errors"
)

// Sentiment is the directional signal an agent votes with.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// ParseSentiment maps free-form agent output to a Sentiment value.
func ParseSentiment(value string) (Sentiment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(SentimentBullish):
		return SentimentBullish, nil
	case string(SentimentBearish):
		return SentimentBearish, nil
	case string(SentimentNeutral):
		return SentimentNeutral, nil
	}
	return "", errors.Newf(errors.CodeSchemaViolation, "unknown sentiment %q", value)
}
