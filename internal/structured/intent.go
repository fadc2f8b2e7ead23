package structured

import "strings"

// Intent classifies which table group a query should hit.
type Intent string

const (
	// IntentSafety targets the adverse-event table.
	IntentSafety Intent = "safety"

	// IntentOutcomes targets the outcomes table.
	IntentOutcomes Intent = "outcomes"

	// IntentInterventions targets the study registry by intervention name.
	IntentInterventions Intent = "interventions"

	// IntentNone means no structured lookup applies.
	IntentNone Intent = "none"
)

// Keyword groups checked in priority order: safety first, then
// outcomes, then named interventions. Only the first matching group's
// table is queried.
var (
	safetyTerms = []string{
		"pneumothorax", "adverse", "safety", "complication",
		"toxicity", "side effect",
	}

	outcomeTerms = []string{
		"fev1", "outcome", "improvement", "lung function",
		"efficacy", "endpoint",
	}

	interventionTerms = []string{
		"blvr", "valve", "endobronchial", "zephyr", "spiration",
	}
)

// DetectIntent classifies a free-text query by keyword presence.
func DetectIntent(query string) Intent {
	q := strings.ToLower(query)

	if containsAny(q, safetyTerms) {
		return IntentSafety
	}
	if containsAny(q, outcomeTerms) {
		return IntentOutcomes
	}
	if containsAny(q, interventionTerms) {
		return IntentInterventions
	}
	return IntentNone
}

func containsAny(q string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}
