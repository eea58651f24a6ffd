package scoring

import "carematch-engine/internal/models"

// Payload field readers. Enrichment payloads are opaque JSON maps, so
// every read degrades to (zero, false) instead of panicking when a field
// is absent or mistyped.

func payloadString(p models.SourcePayload, key string) (string, bool) {
	if p.Missing || p.Data == nil {
		return "", false
	}
	v, ok := p.Data[key].(string)
	return v, ok
}

func payloadNumber(p models.SourcePayload, key string) (float64, bool) {
	if p.Missing || p.Data == nil {
		return 0, false
	}
	switch v := p.Data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func payloadBool(p models.SourcePayload, key string) (bool, bool) {
	if p.Missing || p.Data == nil {
		return false, false
	}
	v, ok := p.Data[key].(bool)
	return v, ok
}

func payloadStrings(p models.SourcePayload, key string) ([]string, bool) {
	if p.Missing || p.Data == nil {
		return nil, false
	}
	switch v := p.Data[key].(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

// ratingPoints maps a registry-style rating word to a 0..1 fraction.
func ratingPoints(rating string) (float64, bool) {
	switch rating {
	case "Outstanding":
		return 1.0, true
	case "Good":
		return 0.8, true
	case "Requires improvement":
		return 0.4, true
	case "Inadequate":
		return 0.1, true
	}
	return 0, false
}
