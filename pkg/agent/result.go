package agent

import (
	"fmt"

	"github.com/openquant/quorum/pkg/core"
	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/profile"
)

// ValidateAndParse checks a terminal payload against the profile's output
// schema and maps it into an AgentResult. A payload that fails validation
// never becomes a Success outcome.
func ValidateAndParse(p *profile.Profile, payload map[string]any) (*core.AgentResult, error) {
	if payload == nil {
		return nil, errors.Newf(errors.CodeSchemaViolation, "agent %s produced no payload", p.Name)
	}

	result := p.Schema.Validate(payload)
	if !result.IsValid() {
		return nil, errors.Newf(errors.CodeSchemaViolation, "agent %s payload failed schema validation: %s", p.Name, result.Error()).
			WithAttribute("agent", p.Name)
	}

	sentimentRaw, _ := payload["sentiment"].(string)
	sentiment, err := core.ParseSentiment(sentimentRaw)
	if err != nil {
		return nil, err
	}

	confidence, err := toFloat(payload["confidence"])
	if err != nil {
		return nil, errors.Newf(errors.CodeSchemaViolation, "agent %s confidence: %v", p.Name, err)
	}

	summary, _ := payload["summary"].(string)

	out := &core.AgentResult{
		Sentiment:  sentiment,
		Confidence: confidence,
		Summary:    summary,
		Raw:        payload,
	}
	if raw, ok := payload["factors"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out.Factors = append(out.Factors, s)
			}
		}
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("value %v is not numeric", v)
}
